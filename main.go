//go:build !js

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	a := newApp()
	cmd := newRootCommand(a)
	if err := cmd.Execute(); err != nil {
		logrus.Debugf("%+v", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(a.exitCode)
}
