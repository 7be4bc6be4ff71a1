package desktop

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/dwizi/taskify/internal/config"
)

//go:embed frontend
var assets embed.FS

// Run opens the desktop window and blocks until it closes.
func Run(cfg config.Config, opts Options) error {
	page, err := fs.Sub(assets, "frontend")
	if err != nil {
		return fmt.Errorf("load desktop assets: %w", err)
	}
	app := NewApp(cfg, opts)
	err = wails.Run(&options.App{
		Title:     cfg.DisplayName,
		Width:     cfg.DesktopWidth,
		Height:    cfg.DesktopHeight,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: page,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind:       []interface{}{app},
	})
	if err != nil {
		return fmt.Errorf("run desktop shell: %w", err)
	}
	return nil
}
