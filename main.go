/*
Sample application driving the engine: brings up a device on the configured
backend and runs an empty frame loop.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/TQwan/SpartanEngine/engine"
	"github.com/TQwan/SpartanEngine/engine/config"
	"github.com/TQwan/SpartanEngine/engine/renderer"
)

func main() {
	cfg, err := config.Load("spartan.toml")
	if err != nil {
		panic(err)
	}

	app, err := engine.New(cfg, func(r *renderer.Renderer, delta float64) error {
		// Frame content goes here: set state on r.State(), then Bind and draw.
		return nil
	})
	if err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = app.Shutdown()
	}()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
