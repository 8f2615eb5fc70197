package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/verified-messages-go/pkg/signer"
)

func main() {
	app := &cli.App{
		Name:      "sign-message",
		Usage:     "Sign a message for the verified-messages registry",
		ArgsUsage: "<private-key> <message>",
		Description: `Signs <message> with the prefixed digest the registry verifies and prints the
signature in r || s || recoveryId order along with the signer addresses.

<private-key> is 32 hex bytes, or 33 hex bytes ending in 01.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Value: true,
				Usage: "Print the signer addresses along with the signature",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: sign-message <private-key> <message>", 1)
			}
			return signMessage(c.App.Writer, c.Args().Get(0), c.Args().Get(1), c.Bool("verbose"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func signMessage(w io.Writer, privateKey, message string, verbose bool) error {
	key, err := signer.ParsePrivateKey(privateKey)
	if err != nil {
		return err
	}

	sig, err := key.SignMessage([]byte(message))
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}

	if !verbose {
		_, err = fmt.Fprintln(w, sig.String())
		return err
	}

	mainnet, testnet, err := key.Addresses()
	if err != nil {
		return fmt.Errorf("failed to derive addresses: %w", err)
	}
	_, err = fmt.Fprintf(w, "Message:   %s\nSignature: %s\nMainnet:   %s\nTestnet:   %s\n",
		message, sig.String(), mainnet.String(), testnet.String())
	return err
}
