package provenance

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigil/internal/c2patool"
	"sigil/internal/config"
)

type stubRunner struct {
	output  []byte
	err     error
	lastCmd c2patool.Command
	// onRun lets tests inspect staged files or populate the output path
	// while the command "runs".
	onRun func(cmd c2patool.Command)
}

func (s *stubRunner) Run(ctx context.Context, cmd c2patool.Command) ([]byte, error) {
	s.lastCmd = cmd
	if s.onRun != nil {
		s.onRun(cmd)
	}
	return s.output, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	return &cfg
}

func TestReaderReturnsMetadata(t *testing.T) {
	runner := &stubRunner{output: []byte(`{"active_manifest":"urn:uuid:a","manifests":{"urn:uuid:a":{"title":"src.jpg"}}}`)}
	reader := NewReader(testConfig(t), runner)

	meta, err := reader.Read(context.Background(), "/assets/src.jpg")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata")
	}
	active := meta.ActiveManifest()
	if active == nil {
		t.Fatal("expected active manifest content")
	}
	if active["title"] != "src.jpg" {
		t.Fatalf("expected active manifest title, got %v", active)
	}
}

func TestReaderEmptyOutputMeansNoMetadata(t *testing.T) {
	runner := &stubRunner{output: []byte("  \n")}
	reader := NewReader(testConfig(t), runner)

	meta, err := reader.Read(context.Background(), "/assets/src.jpg")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if meta != nil {
		t.Fatal("expected nil metadata for empty tool output")
	}
}

func TestReaderToolFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("no claim found")}
	reader := NewReader(testConfig(t), runner)

	if _, err := reader.Read(context.Background(), "/assets/src.jpg"); err == nil {
		t.Fatal("expected error when tool fails")
	}
}

func TestActiveManifestMissingEntry(t *testing.T) {
	meta := &Metadata{Raw: map[string]any{"active_manifest": "urn:uuid:gone", "manifests": map[string]any{}}}
	if meta.ActiveManifest() != nil {
		t.Fatal("expected nil for missing manifest entry")
	}

	var nilMeta *Metadata
	if nilMeta.ActiveManifest() != nil {
		t.Fatal("expected nil for nil metadata")
	}
}

func TestNewRenditionManifestShape(t *testing.T) {
	manifest := NewRenditionManifest("sigil/0.1.0", "out.jpg", "image/jpeg")
	if manifest.ClaimGenerator != "sigil/0.1.0" {
		t.Fatalf("expected generator, got %q", manifest.ClaimGenerator)
	}
	if len(manifest.Assertions) != 2 {
		t.Fatalf("expected created action plus custom assertion, got %d", len(manifest.Assertions))
	}
	if manifest.Assertions[0].Label != "c2pa.actions" {
		t.Fatalf("expected c2pa.actions first, got %q", manifest.Assertions[0].Label)
	}
}

func writeTestCredentials(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sigil-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	certPath = filepath.Join(dir, "certificate.pem")
	keyPath = filepath.Join(dir, "private_key.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		t.Fatalf("write certificate: %v", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certPath, keyPath
}

func TestLocalSignerSigns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Signing.CertificatePath, cfg.Signing.PrivateKeyPath = writeTestCredentials(t, t.TempDir())

	signedBytes := []byte("signed jpeg bytes")
	runner := &stubRunner{
		onRun: func(cmd c2patool.Command) {
			// The tool writes the signed asset to the -o path.
			for i, arg := range cmd.Args {
				if arg == "-o" && i+1 < len(cmd.Args) {
					if err := os.WriteFile(cmd.Args[i+1], signedBytes, 0o644); err != nil {
						t.Errorf("write signed output: %v", err)
					}
				}
			}
		},
	}
	signer := NewLocalSigner(cfg, runner)

	asset := Asset{Data: []byte("jpeg bytes"), MimeType: "image/jpeg"}
	manifest := NewRenditionManifest("sigil/0.1.0", "out.jpg", "image/jpeg")
	signed, err := signer.Sign(context.Background(), asset, manifest)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if !bytes.Equal(signed, signedBytes) {
		t.Fatal("expected signed bytes from tool output")
	}
	if runner.lastCmd.Binary != cfg.Tools.PublicBinary {
		t.Fatalf("expected public binary, got %q", runner.lastCmd.Binary)
	}

	// Scratch files are removed after signing.
	entries, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir cleaned up, found %d entries", len(entries))
	}
}

func TestLocalSignerMissingCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Signing.CertificatePath = filepath.Join(t.TempDir(), "missing-cert.pem")
	cfg.Signing.PrivateKeyPath = filepath.Join(t.TempDir(), "missing-key.pem")

	signer := NewLocalSigner(cfg, &stubRunner{})
	_, err := signer.Sign(context.Background(), Asset{Data: []byte("x")}, ManifestDefinition{})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestLocalSignerToolFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Signing.CertificatePath, cfg.Signing.PrivateKeyPath = writeTestCredentials(t, t.TempDir())

	signer := NewLocalSigner(cfg, &stubRunner{err: errors.New("tool exploded")})
	_, err := signer.Sign(context.Background(), Asset{Data: []byte("x"), MimeType: "image/jpeg"}, ManifestDefinition{})
	if err == nil {
		t.Fatal("expected error when tool fails")
	}
}

func TestRemoteSignerProtocol(t *testing.T) {
	assetBytes := []byte("raw asset bytes")
	signedBytes := []byte("remotely signed bytes")
	var gotBoxSize string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/box-size":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"boxSize":4096}`))
		case "/sign":
			gotBoxSize = r.URL.Query().Get("boxSize")
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Errorf("read sign body: %v", err)
			}
			gotBody = body
			_, _ = w.Write(signedBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Signing.ServiceURL = srv.URL
	signer := NewRemoteSigner(&cfg)

	signed, err := signer.Sign(context.Background(), Asset{Data: assetBytes, MimeType: "image/jpeg"}, ManifestDefinition{})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if !bytes.Equal(signed, signedBytes) {
		t.Fatal("expected signed bytes from service")
	}
	if gotBoxSize != "4096" {
		t.Fatalf("expected boxSize query parameter 4096, got %q", gotBoxSize)
	}
	if !bytes.Equal(gotBody, assetBytes) {
		t.Fatal("expected raw asset bytes in sign request body")
	}
}

func TestRemoteSignerBoxSizeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Signing.ServiceURL = srv.URL
	signer := NewRemoteSigner(&cfg)

	_, err := signer.Sign(context.Background(), Asset{Data: []byte("x")}, ManifestDefinition{})
	if err == nil {
		t.Fatal("expected error when box-size request fails")
	}
}
