package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/colobas/zotero-tree-style-tabs/pkg/host"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// TODO: replace the in-memory host with the Zotero connector once the
	// plugin bridge protocol is settled.
	app := NewApp(host.NewMemory())

	err := wails.Run(&options.App{
		Title:  "Tree Style Tabs",
		Width:  360,
		Height: 720,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
