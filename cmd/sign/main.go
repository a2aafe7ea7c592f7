package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/debemdeboas/blockpress/internal/api"
)

// Signs server challenges by hand, for use with curl or the verify endpoint.
func main() {
	godotenv.Load()

	keyFile := flag.String("key", os.Getenv("ED25519_PRIVKEY_FILE"), "PKCS#8 PEM Ed25519 private key")
	flag.Parse()

	signer, err := api.LoadSigner(*keyFile)
	if err != nil {
		fmt.Println("Error loading private key:", err)
		os.Exit(1)
	}

	promptStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	fmt.Println("Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("Enter challenge (base64): "))
		if !scanner.Scan() {
			break
		}

		challenge := strings.TrimSpace(scanner.Text())
		if challenge == "" {
			continue
		}
		if challenge == "quit" {
			break
		}

		sig, err := signer.Sign(challenge)
		if err != nil {
			fmt.Println(outputStyle.Render("Error: " + err.Error()))
			continue
		}
		fmt.Println(outputStyle.Render("Signature: " + sig))
	}

	if err := scanner.Err(); err != nil {
		fmt.Println("Error reading input:", err)
	}
}
