package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/verified-messages-go/pkg/client"
	"github.com/Layr-Labs/verified-messages-go/pkg/logger"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
)

func main() {
	app := &cli.App{
		Name:  "verified-messages-client",
		Usage: "Client for a verified-messages registry server",
		Description: `Verifies, posts and queries signed messages against a running
verified-messages server. Signatures are hex in r || s || recoveryId order,
as printed by sign-message.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Server base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"VM_SERVER_URL"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "Check a signature against a claimed signer without posting",
				ArgsUsage: "<message> <signature> <signer>",
				Action:    verifyCommand,
			},
			{
				Name:      "post",
				Usage:     "Post a signed message",
				ArgsUsage: "<message> <signature> <signer>",
				Action:    postCommand,
			},
			{
				Name:      "posted",
				Usage:     "Check whether a signer has posted a message",
				ArgsUsage: "<message> <signer>",
				Action:    postedCommand,
			},
			{
				Name:  "events",
				Usage: "List posted-message events",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "after", Usage: "Only events with a greater sequence"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of events (0 for server default)"},
				},
				Action: eventsCommand,
			},
			{
				Name:   "root",
				Usage:  "Print the ledger commitment root",
				Action: rootCommand,
			},
			{
				Name:      "prove",
				Usage:     "Fetch and check an inclusion proof for a posted message",
				ArgsUsage: "<message> <signer>",
				Action:    proveCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newClient(c *cli.Context) (*client.Client, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return client.NewClient(&client.ClientConfig{BaseURL: c.String("server"), Logger: l})
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage), 1)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}
	sig, err := signature.Decode(c.Args().Get(1))
	if err != nil {
		return err
	}
	vc, err := newClient(c)
	if err != nil {
		return err
	}

	valid, err := vc.VerifyMessage(c.Context, []byte(c.Args().Get(0)), sig, c.Args().Get(2))
	if err != nil {
		return err
	}
	fmt.Printf("valid: %t\n", valid)
	return nil
}

func postCommand(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}
	sig, err := signature.Decode(c.Args().Get(1))
	if err != nil {
		return err
	}
	vc, err := newClient(c)
	if err != nil {
		return err
	}

	event, err := vc.PostMessage(c.Context, []byte(c.Args().Get(0)), sig, c.Args().Get(2))
	if err != nil {
		return err
	}
	return printJSON(event)
}

func postedCommand(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	vc, err := newClient(c)
	if err != nil {
		return err
	}

	posted, err := vc.IsMessagePosted(c.Context, []byte(c.Args().Get(0)), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Printf("posted: %t\n", posted)
	return nil
}

func eventsCommand(c *cli.Context) error {
	vc, err := newClient(c)
	if err != nil {
		return err
	}

	events, err := vc.Events(c.Context, c.Uint64("after"), c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(events)
}

func rootCommand(c *cli.Context) error {
	vc, err := newClient(c)
	if err != nil {
		return err
	}

	root, count, err := vc.LedgerRoot(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("root:  %s\ncount: %d\n", root.Hex(), count)
	return nil
}

func proveCommand(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	vc, err := newClient(c)
	if err != nil {
		return err
	}

	proof, root, err := vc.ProveMessage(c.Context, []byte(c.Args().Get(0)), c.Args().Get(1))
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"root": root, "proof": proof})
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
