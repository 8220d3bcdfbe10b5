package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Rank builds the CLI and ranks papers for topic, saving corpus.yaml.
func Rank(topic string) error {
	mg.Deps(Build)
	return sh.RunV("bin/paperscout", "rank", topic, "--output", "corpus.yaml")
}

// Serve builds the CLI and serves the saved corpus over HTTP.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV("bin/paperscout", "serve", "--corpus", "corpus.yaml")
}
