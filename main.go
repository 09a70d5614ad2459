package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"FormulaBoard/internal/app"
	boardnet "FormulaBoard/internal/net"
	"FormulaBoard/internal/settings"
	"FormulaBoard/internal/ui"
	"FormulaBoard/internal/web"
)

// CustomURLScheme links carry a relay address, e.g. formulaboard://192.168.1.5:8000.
const CustomURLScheme = "formulaboard://"

func main() {
	var (
		settingsPath = flag.String("settings", "", "settings file (default ~/.formulaboard/settings.toml)")
		serveAddr    = flag.String("serve", "", "serve the browser front-end on this address instead of opening a window, e.g. :8080")
		relay        = flag.Bool("relay", false, "run the clipboard relay listener")
		relayPort    = flag.Int("port", 8000, "relay listener port")
		advertise    = flag.Bool("mdns", true, "advertise the relay on the local network")
	)
	flag.Parse()

	if *relay {
		if err := runRelay(*relayPort, *advertise); err != nil {
			log.Fatalf("[RELAY] %v", err)
		}
		return
	}

	store, err := openStore(*settingsPath)
	if err != nil {
		log.Fatalf("[SETTINGS] %v", err)
	}
	if link := flag.Arg(0); strings.HasPrefix(link, CustomURLScheme) {
		if err := applyRelayLink(store, link); err != nil {
			log.Printf("[SETTINGS] Ignoring link %q: %v", link, err)
		}
	}

	if *serveAddr != "" {
		if err := runWeb(*serveAddr, store); err != nil {
			log.Fatalf("[WEB] %v", err)
		}
		return
	}
	log.Println("Starting desktop board")
	ui.RunApp(store, app.Deps{})
}

func openStore(path string) (*settings.Store, error) {
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	store, err := settings.NewStore(path)
	if err != nil {
		return nil, err
	}
	if _, err := store.Load(); err != nil {
		log.Printf("[SETTINGS] Using defaults: %v", err)
	}
	log.Printf("[SETTINGS] Loaded %s", store.Path())
	return store, nil
}

func applyRelayLink(store *settings.Store, link string) error {
	address := strings.TrimSuffix(strings.TrimPrefix(link, CustomURLScheme), "/")
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	cfg := store.Get()
	cfg.RelayHost, cfg.RelayPort = host, port
	_, err = store.Save(cfg)
	return err
}

func runWeb(addr string, store *settings.Store) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           web.NewServer(store, app.Deps{}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[WEB] Open http://%s%s on a device on this network", boardnet.OutgoingIP(), portSuffix(addr))
	return serveUntilSignal(srv)
}

func runRelay(port int, advertise bool) error {
	rs := boardnet.NewRelayServer(nil)
	if err := boardnet.CheckClipboard(rs.Clipboard); err != nil {
		return fmt.Errorf("clipboard unavailable, install xclip or xsel on Linux: %w", err)
	}
	log.Println("[RELAY] Clipboard check passed")
	rs.OnCopy = func(latex string) {
		log.Printf("[RELAY] Copied %d bytes to the clipboard", len(latex))
	}
	if advertise {
		server, err := boardnet.Advertise(port)
		if err != nil {
			log.Printf("[RELAY] mDNS advertise failed: %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           rs,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ip := boardnet.OutgoingIP()
	log.Printf("[RELAY] Listening on %s:%d", ip, port)
	log.Printf("[RELAY] Share link: %s%s:%d", CustomURLScheme, ip, port)
	return serveUntilSignal(srv)
}

func serveUntilSignal(srv *http.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func portSuffix(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ""
	}
	return ":" + port
}
