package web

import "embed"

// TemplatesFS holds the page layouts and htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the htmx glue script.
//
//go:embed static/*
var StaticFS embed.FS
