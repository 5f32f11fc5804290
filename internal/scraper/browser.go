package scraper

import (
	"context"
	"tigerscraper/internal/browser"
)

type browserLauncher struct {
	launcher *browser.Launcher
}

// BrowserLauncher launches chromium sessions for the scraper.
func BrowserLauncher(launcher *browser.Launcher) Launcher {
	return browserLauncher{launcher: launcher}
}

func (l browserLauncher) Launch(ctx context.Context) (Session, error) {
	session, err := l.launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	return browserSession{Session: session}, nil
}

type browserSession struct {
	*browser.Session
}

func (s browserSession) Game() Game {
	return s.Session.Game()
}
