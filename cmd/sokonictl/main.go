// Package main provides the sokonictl operator CLI.
package main

import (
	"github.com/sokonihq/sokoni/internal/cmd/ctl"
)

func main() {
	ctl.Execute()
}
