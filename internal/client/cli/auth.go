package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hefi-app/hefi/internal/client/client"
	"github.com/hefi-app/hefi/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email and password and creates an account.
// The new session is kept, so the user is logged in afterwards.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Register(ctx, name, email, string(password))
	a.track(err)
	if err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	a.email = s.Email
	fmt.Println("Success!")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, email, string(password))
	a.track(err)
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	a.email = s.Email
	log.Printf("Login successful")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.authService.WhoAmI(ctx)
	a.track(err)
	if err != nil {
		a.sessionError(err)
		return err
	}
	fmt.Printf("user %s <%s>\n", id.UserID, id.Email)
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	p, err := a.authService.Profile(ctx)
	a.track(err)
	if err != nil {
		a.sessionError(err)
		return err
	}
	fmt.Printf("%s <%s>\nid: %d\n", p.Name, p.Email, p.ID)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	err := a.authService.Refresh(ctx)
	a.track(err)
	if err != nil {
		a.sessionError(err)
		return err
	}
	log.Printf("Tokens refreshed")
	return nil
}

// Logout revokes the refresh token on the server and forgets the local pair.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		log.Printf("Logout error: %s", err.Error())
		return err
	}
	a.email = ""
	log.Printf("Logged out")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	err := a.authService.Ping(ctx)
	a.track(err)
	if err != nil {
		log.Printf("Server unreachable: %s", err.Error())
		return err
	}
	fmt.Println("pong")
	return nil
}

// sessionError reports err and drops the displayed login when the server
// no longer accepts the session.
func (a *App) sessionError(err error) {
	if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrNoSession) {
		a.email = ""
		log.Printf("Session expired, please log in again")
		return
	}
	log.Printf("error: %s", err.Error())
}
