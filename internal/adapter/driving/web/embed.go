package web

import "embed"

// StaticFS holds the embedded dialog stylesheet and script.
//
//go:embed static/*
var StaticFS embed.FS
