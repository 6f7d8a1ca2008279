package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type screeningResp struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Report map[string]any `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")
	token := envOr("API_TOKEN", "dev-secret-token")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8000)")
	tokenFlag := flag.String("token", token, "API bearer token")
	photo := flag.String("photo", "", "Photo to submit as a media screening")
	audio := flag.String("audio", "", "Audio clip to submit as a media screening")
	waitMedia := flag.Duration("wait", 60*time.Second, "How long to poll for the media screening")
	flag.Parse()

	httpc := &http.Client{Timeout: 12 * time.Second}

	// 1) Health
	var health map[string]any
	if err := getJSON(httpc, *baseFlag+"/healthz", "", &health); err != nil {
		fatalf("health: %v", err)
	}
	fmt.Printf("✅ Healthy: %s\n", compactJSON(health["policy"]))

	answers := strings.Split(strings.TrimSuffix(strings.Repeat("no,", 15), ","), ",")

	// 2) Questionnaire only
	var q map[string]any
	if err := postJSON(httpc, *baseFlag+"/v1/questionnaire", *tokenFlag, map[string]any{"answers": answers}, http.StatusOK, &q); err != nil {
		fatalf("questionnaire: %v", err)
	}
	fmt.Printf("✅ Questionnaire: label=%v score=%v/%v\n", q["label"], q["score"], q["max_score"])

	// 3) Synchronous screening
	body := map[string]any{
		"signals": []map[string]any{
			{"modality": "face", "label": "Autistic", "confidence": 0.82},
			{"modality": "eye", "label": "Non-Autistic", "confidence": 0.64},
			{"modality": "voice", "label": "NotAvailable"},
		},
		"answers": answers,
	}
	var created screeningResp
	if err := postJSON(httpc, *baseFlag+"/v1/screenings", *tokenFlag, body, http.StatusCreated, &created); err != nil {
		fatalf("create screening: %v", err)
	}
	fmt.Printf("✅ Created screening: id=%s label=%v confidence=%v\n", created.ID, created.Report["label"], created.Report["confidence"])

	var fetched screeningResp
	if err := getJSON(httpc, fmt.Sprintf("%s/v1/screenings/%s", *baseFlag, created.ID), *tokenFlag, &fetched); err != nil {
		fatalf("get screening: %v", err)
	}
	if fetched.Status != "complete" {
		fatalf("screening %s has status %q", created.ID, fetched.Status)
	}
	fmt.Println("✅ Fetched screening")

	// 4) Media screening (optional)
	if *photo == "" && *audio == "" {
		fmt.Printf("🎉 Smoke run OK. ScreeningID=%s\n", created.ID)
		return
	}
	var queued screeningResp
	if err := postMedia(httpc, *baseFlag+"/v1/screenings/media", *tokenFlag, *photo, *audio, &queued); err != nil {
		fatalf("media screening: %v", err)
	}
	fmt.Printf("✅ Queued media screening: id=%s\n", queued.ID)

	deadline := time.Now().Add(*waitMedia)
	for {
		var sr screeningResp
		if err := getJSON(httpc, fmt.Sprintf("%s/v1/screenings/%s", *baseFlag, queued.ID), *tokenFlag, &sr); err != nil {
			fatalf("get media screening: %v", err)
		}
		if sr.Status != "pending" {
			fmt.Printf("✅ Media screening %s: %s\n", sr.Status, compactJSON(sr))
			break
		}
		if time.Now().After(deadline) {
			fatalf("media screening %s still pending after %s", queued.ID, *waitMedia)
		}
		time.Sleep(2 * time.Second)
	}

	fmt.Printf("🎉 Smoke run OK. ScreeningID=%s MediaScreeningID=%s\n", created.ID, queued.ID)
}

// --- helpers ---

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func postJSON(c *http.Client, url, bearer string, body any, want int, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return do(c, http.MethodPost, url, bearer, "application/json", bytes.NewReader(b), want, out)
}

func postMedia(c *http.Client, url, bearer, photo, audio string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, path := range map[string]string{"photo": photo, "audio": audio} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fw, err := mw.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return do(c, http.MethodPost, url, bearer, mw.FormDataContentType(), &buf, http.StatusAccepted, out)
}

func getJSON(c *http.Client, url, bearer string, out any) error {
	return do(c, http.MethodGet, url, bearer, "", nil, http.StatusOK, out)
}

func do(c *http.Client, method, url, bearer, contentType string, body io.Reader, want int, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %s -> %d: %s", method, url, res.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func compactJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}
