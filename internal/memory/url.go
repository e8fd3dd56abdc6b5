package memory

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

type memoryConnInfo struct {
	addr     string
	username string
	password string
	selectDB int
	useTLS   bool
}

func parseMemoryURL(raw string) (memoryConnInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return memoryConnInfo{}, errors.New("memory store url is empty")
	}

	if !strings.Contains(raw, "://") {
		host, port, err := net.SplitHostPort(strings.TrimSpace(raw))
		if err != nil {
			host = strings.TrimSpace(raw)
			port = "6379"
		}
		if host == "" {
			return memoryConnInfo{}, errors.New("memory store host missing")
		}
		return memoryConnInfo{addr: net.JoinHostPort(host, port)}, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return memoryConnInfo{}, fmt.Errorf("parse url: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return memoryConnInfo{}, errors.New("memory store host missing")
	}

	port := parsed.Port()
	if port == "" {
		port = "6379"
	}

	selectDB := 0
	if strings.TrimSpace(parsed.Path) != "" && parsed.Path != "/" {
		db, err := strconv.Atoi(strings.TrimPrefix(parsed.Path, "/"))
		if err != nil || db < 0 {
			return memoryConnInfo{}, errors.New("invalid memory store db")
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

	return memoryConnInfo{
		addr:     net.JoinHostPort(host, port),
		username: username,
		password: password,
		selectDB: selectDB,
		useTLS:   strings.EqualFold(parsed.Scheme, "rediss"),
	}, nil
}
