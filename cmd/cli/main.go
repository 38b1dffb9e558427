package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"manualhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type productListResponse struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Items  []models.Product `json:"items"`
}

func main() {
	global := flag.NewFlagSet("manualhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "search":
		handleSearch(ctx, client, *baseURL, args[1:])
	case "download":
		handleDownload(ctx, client, *baseURL, args[1:])
	case "products":
		handleProducts(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "manuals":
		handleManuals(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "logs":
		handleLogs(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "feed":
		handleFeed(*baseURL, *tokenPath, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		bootstrap := fs.String("bootstrap-token", "", "operator bootstrap token (required after first account)")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{
			"username":        *username,
			"email":           *email,
			"password":        *password,
			"bootstrap_token": *bootstrap,
		}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		// best effort: bump token_version server-side so the JWT dies too
		if token, err := readToken(tokenPath); err == nil && token != "" {
			_ = doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil)
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: manualhub auth <login|register|logout>")
	}
}

func handleSearch(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serial := fs.String("serial", "", "product serial number")
	_ = fs.Parse(args)
	if *serial == "" {
		log.Fatal("serial is required")
	}

	u, err := url.Parse(baseURL + "/api/search")
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	qv := u.Query()
	qv.Set("serial_number", *serial)
	u.RawQuery = qv.Encode()

	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printJSON(resp)
}

func handleDownload(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	serial := fs.String("serial", "", "product serial number")
	code := fs.String("code", "", "manual code")
	lang := fs.String("lang", "", "language (IT, EN, ...)")
	_ = fs.Parse(args)
	if *serial == "" || *code == "" || *lang == "" {
		log.Fatal("serial, code and lang are required")
	}

	u, err := url.Parse(baseURL + "/api/download")
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	qv := u.Query()
	qv.Set("serial_number", *serial)
	qv.Set("manual_code", *code)
	qv.Set("language", *lang)
	u.RawQuery = qv.Encode()

	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
		log.Fatalf("download failed: %v", err)
	}
	printJSON(resp)
}

func handleProducts(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		fs := flag.NewFlagSet("products list", flag.ExitOnError)
		serial := fs.String("serial", "", "serial number substring filter")
		code := fs.String("code", "", "manual code filter")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/admin/products")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *serial != "" {
			qv.Set("serial_number", *serial)
		}
		if *code != "" {
			qv.Set("manual_code", *code)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp productListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("products add", flag.ExitOnError)
		serial := fs.String("serial", "", "serial number")
		code := fs.String("code", "", "manual code")
		revision := fs.String("revision", "", "revision code, e.g. 001")
		notes := fs.String("notes", "", "free-form notes")
		_ = fs.Parse(args)
		if *serial == "" {
			log.Fatal("serial is required")
		}

		payload := map[string]string{
			"serial_number": *serial,
			"manual_code":   *code,
			"revision_code": *revision,
			"notes":         *notes,
		}
		var resp models.Product
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/products", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("products show", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("product id is required")
		}

		var resp models.Product
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/products/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("products delete", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("product id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/admin/products/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: manualhub products <list|add|show|delete>")
	}
}

func handleManuals(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		fs := flag.NewFlagSet("manuals list", flag.ExitOnError)
		code := fs.String("code", "", "manual code substring filter")
		lang := fs.String("lang", "", "language filter")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/admin/manuals")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *code != "" {
			qv.Set("manual_code", *code)
		}
		if *lang != "" {
			qv.Set("language", *lang)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("manuals add", flag.ExitOnError)
		code := fs.String("code", "", "manual code")
		name := fs.String("name", "", "display name")
		description := fs.String("description", "", "description")
		lang := fs.String("lang", "", "language (IT, EN, ...)")
		revision := fs.String("revision", "", "revision code, e.g. 001")
		_ = fs.Parse(args)
		if *code == "" || *lang == "" {
			log.Fatal("code and lang are required")
		}

		payload := map[string]string{
			"manual_code":   *code,
			"name":          *name,
			"description":   *description,
			"language":      *lang,
			"revision_code": *revision,
		}
		var resp models.Manual
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/manuals", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("manuals show", flag.ExitOnError)
		id := fs.String("id", "", "manual id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("manual id is required")
		}

		var resp models.Manual
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/manuals/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("manuals delete", flag.ExitOnError)
		id := fs.String("id", "", "manual id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("manual id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/admin/manuals/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: manualhub manuals <list|add|show|delete>")
	}
}

func handleLogs(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "searches", "downloads":
		fs := flag.NewFlagSet("logs "+sub, flag.ExitOnError)
		outcome := fs.String("outcome", "", "outcome filter")
		serial := fs.String("serial", "", "serial number filter")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/admin/" + sub)
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *outcome != "" {
			qv.Set("outcome", *outcome)
		}
		if *serial != "" {
			qv.Set("serial_number", *serial)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("logs failed: %v", err)
		}
		printJSON(resp)
	case "stats":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/stats", token, nil, &resp); err != nil {
			log.Fatalf("stats failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: manualhub logs <searches|downloads|stats>")
	}
}

func handleFeed(baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("feed listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP feed server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runFeedTCP(*addr, *pretty); err != nil {
				log.Printf("[feed] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "subscribe":
		fs := flag.NewFlagSet("feed subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /admin/feed on API host)")
		_ = fs.Parse(args)

		token := mustToken(tokenPath)
		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/admin/feed")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		// the WS route reads the JWT from the query string
		endpoint += "?token=" + url.QueryEscape(token)
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	default:
		log.Fatal("usage: manualhub feed <listen|subscribe>")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/products.json", "output JSON path")
		limit := fs.Int("limit", 500, "max products to export")
		_ = fs.Parse(args)

		items, err := fetchProducts(ctx, client, baseURL, token, *limit)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d products to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/products.csv", "output CSV path")
		limit := fs.Int("limit", 500, "max products to export")
		_ = fs.Parse(args)

		items, err := fetchProducts(ctx, client, baseURL, token, *limit)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d products to %s", len(items), *out)
	default:
		log.Fatal("usage: manualhub export <json|csv>")
	}
}

func runFeedTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func fetchProducts(ctx context.Context, client *http.Client, baseURL, token string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.Product
	offset := 0
	for len(out) < limit {
		pageSize := 50
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		u, err := url.Parse(baseURL + "/admin/products")
		if err != nil {
			return nil, err
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", pageSize))
		qv.Set("offset", fmt.Sprintf("%d", offset))
		u.RawQuery = qv.Encode()

		var resp productListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			break
		}
		out = append(out, resp.Items...)
		offset += len(resp.Items)
		if offset >= resp.Total {
			break
		}
	}

	return out, nil
}

func writeJSON(path string, items []models.Product) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Product) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "serial_number", "manual_code", "revision_code", "notes",
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			item.ID,
			item.SerialNumber,
			item.ManualCode,
			item.RevisionCode,
			item.Notes,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.manualhub-token.json"
	}
	return filepath.Join(home, ".manualhub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("manualhub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  search -serial <sn>")
	fmt.Println("  download -serial <sn> -code <manual_code> -lang <IT|EN|...>")
	fmt.Println("  products list|add|show|delete")
	fmt.Println("  manuals list|add|show|delete")
	fmt.Println("  logs searches|downloads|stats")
	fmt.Println("  feed listen|subscribe")
	fmt.Println("  export json|csv")
}
