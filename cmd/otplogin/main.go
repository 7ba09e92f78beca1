// Command otplogin signs in to the auth API from a terminal: credentials
// first, then the emailed six-digit code.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"chatauth/internal/client"

	"golang.org/x/term"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "auth server base URL")
	signup := flag.String("signup", "", "create an account with this full name before logging in")
	flag.Parse()

	api, err := client.New(*addr)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	in := bufio.NewReader(os.Stdin)

	email := prompt(in, "Email: ")
	password := readPassword()

	if *signup != "" {
		if _, err := api.Signup(ctx, email, password, *signup); err != nil {
			log.Fatalf("signup: %v", err)
		}
		fmt.Println("Account created.")
	}

	flow := client.NewFlow(api)
	stop := make(chan struct{})
	defer close(stop)
	go tick(flow, stop)

	for {
		if flow.Step() == client.StepCreds {
			if err := flow.SubmitCredentials(ctx, email, password); err != nil {
				fmt.Println(message(err))
				email = prompt(in, "Email: ")
				password = readPassword()
				continue
			}
			fmt.Printf("Enter the %d-digit code sent to %s (expires in %d min).\n",
				client.Digits, flow.MaskedEmail(), flow.ExpiresIn())
			if !flow.EmailSent() {
				fmt.Println("The email could not be sent. Request a new code shortly.")
			}
		}

		line := prompt(in, otpPrompt(flow))
		switch strings.ToLower(line) {
		case "r":
			res, err := flow.Resend(ctx)
			if err != nil {
				if errors.Is(err, client.ErrResendDisabled) {
					fmt.Printf("Resend available in %ds.\n", flow.Cooldown())
				} else {
					fmt.Println(flow.Error())
				}
				continue
			}
			fmt.Println(res.Message)
			continue
		case "c":
			flow.ChangeEmail()
			email = prompt(in, "Email: ")
			password = readPassword()
			continue
		}

		flow.Code.Reset()
		if !flow.Code.Paste(0, line) {
			fmt.Printf("Enter all %d digits.\n", client.Digits)
			continue
		}
		u, err := flow.SubmitCode(ctx)
		if err != nil {
			fmt.Println(flow.Error())
			continue
		}
		fmt.Printf("Signed in as %s.\n", u.Email)
		if !u.IsOnboarded {
			fmt.Println("Profile incomplete: finish onboarding to use chat.")
		}
		return
	}
}

func tick(f *client.Flow, stop <-chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			f.Tick()
		case <-stop:
			return
		}
	}
}

func otpPrompt(f *client.Flow) string {
	if f.CanResend() {
		return "Code ([r]esend, [c]hange email): "
	}
	return fmt.Sprintf("Code (resend in %ds, [c]hange email): ", f.Cooldown())
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		os.Exit(1)
	}
	return strings.TrimSpace(line)
}

func readPassword() string {
	fmt.Print("Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	return string(b)
}

func message(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
