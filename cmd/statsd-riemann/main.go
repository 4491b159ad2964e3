package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/riemann-bridge/statsd-riemann/cli"
	_ "github.com/riemann-bridge/statsd-riemann/diagnostics"
)

func main() {
	c, err, ok := cli.NewConfigFromCLI(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if ok {
		os.Exit(0)
	}

	opts := []cli.Option{
		cli.WithName("statsd-riemann"),
		cli.WithDefaultSource(),
	}

	runner, err := cli.NewRunner(c, opts)

	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}

	err = runner.Run()

	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}
