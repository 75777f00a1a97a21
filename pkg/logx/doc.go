// Package logx is a thin structured-logging layer over zerolog.
//
// It exposes a small Logger with typed field helpers so the rest of the
// codebase never imports zerolog directly.
package logx
