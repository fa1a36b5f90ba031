package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestDiscordNotifierSuccess(t *testing.T) {
	var received discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Fatalf("Content-Type 不正确: %s", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := NewDiscordNotifier(srv.URL, "haltwatch", time.Second, testLogger())
	msg := Message{Title: "CBOE Changes: 1 Started, 0 Ended", Body: "body", Color: ColorStandard}

	if err := notifier.Notify(context.Background(), msg); err != nil {
		t.Fatalf("Discord Notify 应成功: %v", err)
	}

	if received.Username != "haltwatch" {
		t.Fatalf("username 不正确: %#v", received)
	}
	if len(received.Embeds) != 1 {
		t.Fatalf("应恰好一个 embed: %#v", received.Embeds)
	}
	embed := received.Embeds[0]
	if embed.Title != msg.Title || embed.Description != msg.Body || embed.Color != ColorStandard {
		t.Fatalf("embed 内容不正确: %#v", embed)
	}
	if embed.Footer.Text == "" {
		t.Fatal("footer 应非空")
	}
}

func TestDiscordNotifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	notifier := NewDiscordNotifier(srv.URL, "", time.Second, testLogger())
	if err := notifier.Notify(context.Background(), Message{Title: "t"}); err == nil {
		t.Fatal("非 2xx 响应应报错")
	}
}

func TestDiscordNotifierMissingWebhook(t *testing.T) {
	notifier := NewDiscordNotifier("  ", "", time.Second, testLogger())
	if err := notifier.Notify(context.Background(), Message{Title: "t"}); err == nil {
		t.Fatal("未配置 webhook 应报错")
	}
}
