package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

func main() {
	redirect := flag.String("redirect", "http://localhost:8080/callback", "OAuth redirect URL registered for the client")
	flag.Parse()

	_ = godotenv.Load()

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		logrus.Fatal("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	// The poller only reads, so the token is limited to the readonly scope.
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  *redirect,
	}

	authURL := conf.AuthCodeURL("mail-job-intake", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Open this link and approve access:\n%v\n", authURL)
	fmt.Print("\nPaste the 'code' parameter from the redirect URL: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		logrus.Fatalf("failed to read authorization code: %v", err)
	}

	tok, err := conf.Exchange(context.Background(), code)
	if err != nil {
		logrus.Fatalf("failed to exchange authorization code: %v", err)
	}
	if tok.RefreshToken == "" {
		logrus.Fatal("no refresh token returned; revoke the app's access and retry")
	}

	fmt.Printf("\nexport GMAIL_REFRESH_TOKEN=%q\n", tok.RefreshToken)
	fmt.Println("Set MAIL_PROVIDER=gmail to poll through the Gmail API.")
}
