package main

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"logclassifier/internal/app"
)

// Embedded single-page frontend
//
//go:embed frontend/index.html
var frontendFiles embed.FS

func frontendFS() (fs.FS, error) {
	return fs.Sub(frontendFiles, "frontend")
}

func main() {
	var frontend fs.FS
	if sub, err := frontendFS(); err == nil {
		frontend = sub
	} else {
		slog.Warn("Frontend embedding failed, serving API only", slog.String("error", err.Error()))
	}

	application, err := app.NewApplication(frontend)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
