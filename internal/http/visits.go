package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/auth"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/dashboard"
)

const visitCookie = "visit"

// startVisit opens a fresh dashboard visit for the signed-in user. The
// expense list and the categories are fetched concurrently.
func (s *Server) startVisit(w http.ResponseWriter, r *http.Request) (*dashboard.Controller, []core.Category, error) {
	ctx := r.Context()
	owner := auth.CurrentID(ctx)
	ctl := s.newController(owner)

	var cats []core.Category
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.Load(gctx) })
	g.Go(func() error {
		var err error
		cats, err = s.expenses.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("start visit: %w", err)
	}

	id := uuid.NewString()
	s.visits.Set(ctx, id, ctl)
	http.SetCookie(w, &http.Cookie{
		Name:     visitCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.log(r).DebugContext(ctx, "Dashboard visit started",
		append(applog.NewFields().WithOwner(owner).ToSlice(), "visit_id", id)...)
	return ctl, cats, nil
}

// visit returns the controller of the caller's current visit, starting a
// new one when the cookie is missing, expired or belongs to another user.
func (s *Server) visit(w http.ResponseWriter, r *http.Request) (*dashboard.Controller, error) {
	owner := auth.CurrentID(r.Context())
	if c, err := r.Cookie(visitCookie); err == nil {
		if ctl, ok := s.visits.Get(r.Context(), c.Value); ok && ctl.Owner() == owner {
			return ctl, nil
		}
	}
	ctl, _, err := s.startVisit(w, r)
	return ctl, err
}

func (s *Server) newController(owner string) *dashboard.Controller {
	return dashboard.NewController(s.expenses, owner,
		dashboard.WithClock(s.clock),
		dashboard.WithDefaultPeriod(s.defaultPeriod))
}

// categories loads the category list for forms and filters.
func (s *Server) categories(ctx context.Context) []core.Category {
	cats, err := s.expenses.Categories(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Category list error", "error", err)
	}
	return cats
}
