// Package main provides a one-shot utility for token signing key generation.
//
// It emits the Ed25519 keypair used to sign and verify API access tokens.
package main

import (
	"os"

	"github.com/sokonihq/sokoni/internal/platform/config"
	"github.com/sokonihq/sokoni/internal/tools/tokenkey"
)

func main() {
	if err := tokenkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate token key: %v", err)
	}
}
