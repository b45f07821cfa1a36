//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."            // relative to ./e2e
const mainPkgRel = "./cmd/weather1" // main.go lives in cmd/weather1/

const (
	mqttPort    = nat.Port("1883/tcp")
	topicPrefix = "weather1/e2e"
)

func TestSmoke_CreatePublishesEvent(t *testing.T) {
	repoRoot := repoRootPath(t)
	host, port := startBroker(t)
	events := subscribe(t, host, port)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin, "serve")
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "weather1.db"),
		"STATIC_DIR="+filepath.Join(repoRoot, "static"),
		"TIMEZONE=Europe/Moscow",
		"MQTT_BROKER="+host,
		"MQTT_PORT="+port.Port(),
		"MQTT_CLIENT_ID=weather1-e2e",
		"MQTT_TOPIC_PREFIX="+topicPrefix,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{
		Timeout: 2 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)

	form := url.Values{
		"city":          {"Moscow"},
		"timestamp":     {"2025-10-19T14:00"},
		"temperature":   {"6.5"},
		"humidity":      {"60"},
		"windSpeed":     {"3"},
		"precipitation": {"none"},
	}
	resp, err := client.PostForm(base+"/Observations/Create", form)
	if err != nil {
		t.Fatalf("POST /Observations/Create: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create status=%d want=%d", resp.StatusCode, http.StatusSeeOther)
	}

	select {
	case msg := <-events:
		if msg.topic != topicPrefix+"/created" {
			t.Fatalf("topic=%q want=%q", msg.topic, topicPrefix+"/created")
		}
		var ev struct {
			Action      string `json:"action"`
			Observation struct {
				City        string  `json:"city"`
				Temperature float64 `json:"temperature"`
			} `json:"observation"`
		}
		if err := json.Unmarshal(msg.payload, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Action != "created" || ev.Observation.City != "Moscow" || ev.Observation.Temperature != 6.5 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no change event received")
	}

	resp, err = client.Get(base + "/Observations/TemperatureData?city=Moscow")
	if err != nil {
		t.Fatalf("GET TemperatureData: %v", err)
	}
	defer resp.Body.Close()
	var points []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(points) != 1 || points[0]["timestamp"] != "2025-10-19 14:00" {
		t.Fatalf("points=%v", points)
	}

	stopServer(t, cmd)
}

func startBroker(t *testing.T) (string, nat.Port) {
	t.Helper()

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{string(mqttPort)},
		WaitingFor:   wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, port
}

type message struct {
	topic   string
	payload []byte
}

func subscribe(t *testing.T, host string, port nat.Port) <-chan message {
	t.Helper()

	out := make(chan message, 8)
	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port.Port())).
		SetClientID("weather1-e2e-subscriber")
	client := paho.NewClient(opts)
	if tok := client.Connect(); !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	t.Cleanup(func() { client.Disconnect(250) })

	tok := client.Subscribe(topicPrefix+"/#", 1, func(_ paho.Client, m paho.Message) {
		out <- message{topic: m.Topic(), payload: append([]byte(nil), m.Payload()...)}
	})
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}
	return out
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "weather1")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
