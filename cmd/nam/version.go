package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/internal/version"
	"github.com/samcharles93/namcore/pkg/nam"
)

func versionCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := version.Resolve()
			if asJSON {
				b, err := json.Marshal(info)
				if err != nil {
					return err
				}
				fmt.Println(string(b))
				return nil
			}
			fmt.Printf("version:       %s\n", info.Version)
			if info.Commit != "" {
				fmt.Printf("commit:        %s\n", info.Commit)
			}
			if info.BuildTime != "" {
				fmt.Printf("build time:    %s\n", info.BuildTime)
			}
			fmt.Printf("go:            %s\n", info.GoVersion)
			fmt.Printf("architectures: %v\n", nam.Architectures())
			return nil
		},
	}
}
