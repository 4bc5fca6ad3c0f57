package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) getStatus() string {
	s := ""
	if a.email != "" {
		s = a.email + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// restore picks up a session left in the store by a previous run.
func (a *App) restore(ctx context.Context) {
	ok, err := a.authService.LoggedIn(ctx)
	if err != nil {
		log.Printf("Stored session unreadable: %s", err.Error())
		return
	}
	if !ok {
		return
	}

	id, err := a.authService.WhoAmI(ctx)
	a.track(err)
	if err != nil {
		log.Printf("Stored session not restored: %s", err.Error())
		return
	}
	a.email = id.Email
	log.Printf("Welcome back, %s", id.Email)
}

func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to Hefi CLI (type 'help' for commands)")

	a.restore(ctx)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
