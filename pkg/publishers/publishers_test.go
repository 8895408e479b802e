package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeRegistry(t, "publishers.yaml", `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 publishers, got %d", len(reg.All()))
	}
}

func TestLoadRegistryAllTypes(t *testing.T) {
	path := writeRegistry(t, "publishers.yml", `
publishers:
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.me-central-1.amazonaws.com/1/submissions "
      region: me-central-1
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:me-central-1:1:submissions
      region: me-central-1
      credentials:
        access_key_id: AKIA
        secret_access_key: secret
  - id: gcp
    type: pubsub
    pubsub:
      project_id: fatoora
      topic: submissions
  - id: hook
    type: http
    http:
      url: https://hooks.example.com
      headers:
        " X-Token ": " abc "
        X-Empty: ""
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	queue, ok := reg.ByID("queue")
	if !ok || queue.Type != TypeSQS {
		t.Fatalf("queue not loaded: %#v", queue)
	}
	if queue.SQS.QueueURL != "https://sqs.me-central-1.amazonaws.com/1/submissions" {
		t.Fatalf("queue url not trimmed: %q", queue.SQS.QueueURL)
	}

	topic, _ := reg.ByID("topic")
	if topic.SNS == nil || topic.SNS.Credentials == nil || topic.SNS.Credentials.AccessKeyID != "AKIA" {
		t.Fatalf("sns credentials not loaded: %#v", topic.SNS)
	}

	hook, _ := reg.ByID("hook")
	if hook.HTTP.Method != "POST" || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", hook.HTTP)
	}
	if len(hook.HTTP.Headers) != 1 || hook.HTTP.Headers["X-Token"] != "abc" {
		t.Fatalf("headers not sanitized: %#v", hook.HTTP.Headers)
	}
	if !hook.EnabledValue() {
		t.Fatalf("publishers default to enabled")
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeRegistry(t, "publishers.json", `{"publishers":[{"id":"gcp","type":"pubsub","pubsub":{"project_id":"p","topic":"t"}}]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := reg.ByID("gcp"); !ok {
		t.Fatalf("expected gcp publisher")
	}
}

func TestLoadRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	dup := writeRegistry(t, "dup.yaml", `
publishers:
  - id: a
    type: http
    http: {url: "https://a"}
  - id: a
    type: http
    http: {url: "https://b"}
`)
	if _, err := LoadRegistry(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	empty := writeRegistry(t, "empty.yaml", "publishers: []\n")
	if _, err := LoadRegistry(empty); err == nil {
		t.Fatalf("expected error for empty registry")
	}

	if _, err := LoadRegistry("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  PublisherConfig
	}{
		{"missing id", PublisherConfig{Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "u"}}},
		{"missing type", PublisherConfig{ID: "x"}},
		{"missing http", PublisherConfig{ID: "h1", Type: TypeHTTP}},
		{"missing sqs region", PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}}},
		{"missing sns topic", PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "r"}}},
		{"missing pubsub topic", PublisherConfig{ID: "p", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validatePublisherConfig(tc.cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNilRegistryAccessors(t *testing.T) {
	var reg *ConfigRegistry
	if _, ok := reg.ByID("a"); ok {
		t.Fatalf("nil registry should not find entries")
	}
	if reg.All() != nil || reg.Enabled() != nil {
		t.Fatalf("nil registry should return nil slices")
	}
}
