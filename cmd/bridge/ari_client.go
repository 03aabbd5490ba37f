package main

import (
	"log"

	"github.com/lokutor-ai/ari-voicebridge/pkg/ari"
	"github.com/lokutor-ai/ari-voicebridge/pkg/config"
)

// buildARIClient is the one extension point this binary leaves open: an
// Asterisk ARI REST/WebSocket client satisfying pkg/ari.Client, connected
// to cfg.AriBaseURL under cfg.AriAppName. Deployments swap this function
// for a concrete implementation (e.g. a thin wrapper over an ARI SDK of
// their choosing); nothing else in this package needs to change.
func buildARIClient(cfg config.Config) ari.Client {
	log.Fatalf("no ARI client wired: replace buildARIClient in cmd/bridge/ari_client.go with a concrete pkg/ari.Client connected to %s", cfg.AriBaseURL)
	return nil
}
