package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/gotd/td/session/tdesktop"
	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/pflag"

	"github.com/blockedby/tgstore-scraper/internal/config"
	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/telegram"
)

func main() {
	method := pflag.StringP("method", "m", "", "tdata, phone or qr (asked when empty)")
	pflag.Parse()

	fmt.Println("=== telegram auth tool ===")
	fmt.Println("this tool stores a telegram session for the scraper")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fail("load config", err)
	}
	if err := logger.Init("warn", ""); err != nil {
		fail("init logger", err)
	}

	reader := bufio.NewReader(os.Stdin)
	getAPICredentials(cfg, reader)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := telegram.OpenSessionDB(cfg.TGSessionPath)
	if err != nil {
		fail("open session database", err)
	}
	manager := telegram.NewManager(cfg, db)

	if *method == "" {
		*method = chooseMethod(reader)
	}

	switch *method {
	case "tdata":
		err = authWithTData(manager, reader)
	case "phone":
		err = authWithPhone(cfg, reader)
	case "qr":
		err = authWithQR(ctx, manager)
	default:
		err = fmt.Errorf("unknown method %q", *method)
	}
	if err != nil {
		fail("authentication", err)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("session stored in %s\n", cfg.TGSessionPath)
	fmt.Println("\n⚠️  keep this file secret! it provides full access to your telegram account")
}

func fail(what string, err error) {
	fmt.Printf("error: %s: %v\n", what, err)
	os.Exit(1)
}

// chooseMethod offers the telegram desktop session when one is found.
func chooseMethod(reader *bufio.Reader) string {
	if accounts, err := tdesktop.Read(getTelegramDesktopPath(), nil); err == nil && len(accounts) > 0 {
		fmt.Printf("detected %d telegram desktop session(s)\n\n", len(accounts))
	}

	fmt.Println("choose authentication method:")
	fmt.Println("  1. use telegram desktop session")
	fmt.Println("  2. authenticate with phone number (sms/code)")
	fmt.Println("  3. scan a qr code with the telegram app")
	fmt.Print("\nenter choice [3]: ")

	choice, _ := reader.ReadString('\n')
	switch strings.TrimSpace(choice) {
	case "1":
		return "tdata"
	case "2":
		return "phone"
	default:
		return "qr"
	}
}

// getTelegramDesktopPath returns the path to Telegram Desktop data directory
func getTelegramDesktopPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Telegram Desktop", "tdata")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Telegram Desktop", "tdata")
	default: // linux
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "TelegramDesktop", "tdata")
	}
}

// getAPICredentials prompts for API ID and Hash missing from the environment.
func getAPICredentials(cfg *config.Config, reader *bufio.Reader) {
	if cfg.TGApiID == 0 {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		s, _ := reader.ReadString('\n')
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			fail("invalid api_id", err)
		}
		cfg.TGApiID = id
	}
	if cfg.TGApiHash == "" {
		fmt.Print("enter your api_hash: ")
		s, _ := reader.ReadString('\n')
		cfg.TGApiHash = strings.TrimSpace(s)
	}
}

// authWithTData imports the auth key of a Telegram Desktop account.
func authWithTData(manager *telegram.Manager, reader *bufio.Reader) error {
	tdataPath := getTelegramDesktopPath()
	accounts, err := tdesktop.Read(tdataPath, nil)
	if err != nil || len(accounts) == 0 {
		fmt.Printf("default path not found: %s\n", tdataPath)
		fmt.Print("enter telegram desktop path: ")
		customPath, _ := reader.ReadString('\n')
		customPath = strings.TrimSpace(customPath)
		if !strings.HasSuffix(customPath, "tdata") {
			customPath = filepath.Join(customPath, "tdata")
		}
		if accounts, err = tdesktop.Read(customPath, nil); err != nil {
			return fmt.Errorf("read tdata: %w", err)
		}
		if len(accounts) == 0 {
			return fmt.Errorf("no accounts in %s", customPath)
		}
	}

	idx := 0
	if len(accounts) > 1 {
		fmt.Printf("\nfound %d telegram accounts\n", len(accounts))
		fmt.Print("select account number [1]: ")
		choice, _ := reader.ReadString('\n')
		if n, err := strconv.Atoi(strings.TrimSpace(choice)); err == nil && n >= 1 && n <= len(accounts) {
			idx = n - 1
		}
	}

	data, err := session.TDesktopSession(accounts[idx])
	if err != nil {
		return fmt.Errorf("convert tdata session: %w", err)
	}
	return manager.ImportSession(data)
}

// authWithPhone logs in interactively; gotgproto writes the session into the
// same sqlite file the scraper reads.
func authWithPhone(cfg *config.Config, reader *bufio.Reader) error {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for code)")

	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(cfg.TGSessionPath)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return err
	}
	defer client.Stop()

	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	return nil
}

// authWithQR prints login tokens as terminal QR codes until one is scanned.
func authWithQR(ctx context.Context, manager *telegram.Manager) error {
	fmt.Println("\nopen telegram on your phone: settings > devices > link desktop device")
	return manager.StartQR(ctx, func(url string) {
		fmt.Println()
		qrterminal.GenerateHalfBlock(url, qrterminal.L, os.Stdout)
		fmt.Println("waiting for scan... (the code refreshes automatically)")
	})
}
