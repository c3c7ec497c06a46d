// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the Synap server entry point: it loads configuration,
// builds and starts an engine.Engine, and serves the command envelope over
// HTTP until an interrupt or terminate signal asks it to shut down.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"synap/internal/config"
	"synap/internal/engine"
	"synap/internal/logx"
	"synap/internal/transport"
)

func main() {
	configPath := pflag.String("config", "", "path to a HuJSON config file (defaults used if empty)")
	envFile := pflag.String("env-file", ".env", "optional .env file overlaying config before SYNAP_* environment variables")
	printConfig := pflag.Bool("print-config", false, "print the fully-resolved configuration as JSON and exit")
	host := pflag.String("host", "", "override server.host")
	port := pflag.Int("port", 0, "override server.port")
	pflag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synap-server: loading config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "synap-server: invalid config: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := config.FormatJSON(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "synap-server: formatting config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	eng, err := engine.New(cfg)
	if err != nil {
		logx.Errorf("synap-server: building engine: %v", err)
		os.Exit(1)
	}
	if err := eng.Start(); err != nil {
		logx.Errorf("synap-server: starting engine: %v", err)
		os.Exit(1)
	}

	srv := transport.NewServer(eng.Dispatcher)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Infof("synap-server: listening on %s (version %s)", addr, engine.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Errorf("synap-server: http server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logx.Infof("synap-server: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logx.Errorf("synap-server: http server shutdown: %v", err)
	}
	if err := eng.Shutdown(); err != nil {
		logx.Errorf("synap-server: engine shutdown: %v", err)
	}
	logx.Infof("synap-server: stopped")
}
