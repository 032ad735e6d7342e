package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "supervisor.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("缺省监听地址不符: %q", cfg.Server.Address)
	}
	if cfg.Registry.Path != filepath.Join(filepath.Dir(path), "agents.yaml") {
		t.Fatalf("缺省注册表路径不符: %q", cfg.Registry.Path)
	}
	if cfg.Conversation.Driver != "memory" || cfg.Conversation.HistoryLimit != 20 {
		t.Fatalf("会话缺省配置不符: %+v", cfg.Conversation)
	}
	if cfg.AuditQueue.Driver != "memory" || cfg.AuditQueue.Workers != 1 {
		t.Fatalf("队列缺省配置不符: %+v", cfg.AuditQueue)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeConfig(t, `{
		"registry": {"path": "conf/agents.yaml"},
		"logging": {"audit": {"enabled": true, "path": "logs/audit.log"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.Registry.Path != filepath.Join(base, "conf", "agents.yaml") {
		t.Fatalf("注册表相对路径未解析: %q", cfg.Registry.Path)
	}
	if cfg.Logging.Audit.Path != filepath.Join(base, "logs", "audit.log") {
		t.Fatalf("审计日志相对路径未解析: %q", cfg.Logging.Audit.Path)
	}
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	t.Setenv("SUPERVISOR_TEST_KEY", "sk-demo")
	path := writeConfig(t, `{"llm": {"api_key_env": "SUPERVISOR_TEST_KEY"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.LLM.APIKey != "sk-demo" {
		t.Fatalf("应从环境变量读取 API key: %q", cfg.LLM.APIKey)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("空路径应报错")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("文件不存在应报错")
	}
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("非法 JSON 应报错")
	}
}

func TestLoggerConfigMapping(t *testing.T) {
	path := writeConfig(t, `{
		"logging": {
			"level": "debug",
			"format": "text",
			"outputs": ["stderr"],
			"audit": {"enabled": true, "path": "logs/audit.log", "max_size_mb": 5}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	lc := cfg.LoggerConfig()
	if lc.Level != "debug" || lc.Format != "text" || len(lc.Outputs) != 1 {
		t.Fatalf("日志配置映射不符: %+v", lc)
	}
	if !lc.Audit.Enabled || lc.Audit.MaxSizeMB != 5 {
		t.Fatalf("审计配置映射不符: %+v", lc.Audit)
	}
}
