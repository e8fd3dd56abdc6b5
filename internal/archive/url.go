package archive

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

type archiveConnInfo struct {
	addr     string
	username string
	password string
	selectDB int
	useTLS   bool
}

func parseArchiveURL(raw string) (archiveConnInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return archiveConnInfo{}, errors.New("archive store url is empty")
	}

	if !strings.Contains(raw, "://") {
		host, port, err := net.SplitHostPort(strings.TrimSpace(raw))
		if err != nil {
			host = strings.TrimSpace(raw)
			port = "6379"
		}
		if host == "" {
			return archiveConnInfo{}, errors.New("archive store host missing")
		}
		return archiveConnInfo{addr: net.JoinHostPort(host, port)}, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return archiveConnInfo{}, fmt.Errorf("parse url: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return archiveConnInfo{}, errors.New("archive store host missing")
	}

	port := parsed.Port()
	if port == "" {
		port = "6379"
	}

	selectDB := 0
	if strings.TrimSpace(parsed.Path) != "" && parsed.Path != "/" {
		db, err := strconv.Atoi(strings.TrimPrefix(parsed.Path, "/"))
		if err != nil || db < 0 {
			return archiveConnInfo{}, errors.New("invalid archive store db")
		}
		selectDB = db
	}

	username := ""
	password := ""
	if parsed.User != nil {
		username = parsed.User.Username()
		pw, _ := parsed.User.Password()
		password = pw
	}

	return archiveConnInfo{
		addr:     net.JoinHostPort(host, port),
		username: username,
		password: password,
		selectDB: selectDB,
		useTLS:   strings.EqualFold(parsed.Scheme, "rediss"),
	}, nil
}
