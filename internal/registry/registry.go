package registry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	xerrors "Supervisor-Integration-Agent/internal/errors"
)

// AgentType 标识智能体的接入方式。
type AgentType string

const (
	TypeHTTP AgentType = "http"
	TypeCLI  AgentType = "cli"
)

// Capability 是按能力划分的封闭枚举，调用方按能力分派而非比较字符串。
type Capability int

const (
	// CapabilityUnconfigured 表示类型无法识别或必要的连接信息缺失。
	CapabilityUnconfigured Capability = iota
	// CapabilityHTTP 表示通过 HTTP POST 调用的智能体。
	CapabilityHTTP
	// CapabilityCLI 表示声明为命令行执行的智能体，当前不可执行。
	CapabilityCLI
)

// defaultTimeout 在注册表未填写 timeout_ms 时生效。
const defaultTimeout = 30 * time.Second

// AgentMetadata 描述单个智能体的连接信息，由注册表提供且不可变。
type AgentMetadata struct {
	Name      string    `yaml:"name" json:"name"`
	Type      AgentType `yaml:"type" json:"type"`
	Endpoint  string    `yaml:"endpoint" json:"endpoint,omitempty"`
	TimeoutMS int       `yaml:"timeout_ms" json:"timeout_ms"`
}

// Capability 返回元数据对应的调用能力。
func (m AgentMetadata) Capability() Capability {
	switch m.Type {
	case TypeHTTP:
		if strings.TrimSpace(m.Endpoint) == "" {
			return CapabilityUnconfigured
		}
		return CapabilityHTTP
	case TypeCLI:
		return CapabilityCLI
	default:
		return CapabilityUnconfigured
	}
}

// Timeout 返回该智能体单次调用的超时时间。
func (m AgentMetadata) Timeout() time.Duration {
	if m.TimeoutMS <= 0 {
		return defaultTimeout
	}
	return time.Duration(m.TimeoutMS) * time.Millisecond
}

// Registry 是一次加载得到的只读智能体目录。
type Registry struct {
	agents []AgentMetadata
	byName map[string]AgentMetadata
}

// New 基于给定的元数据列表构建注册表。重名时后出现的条目被忽略。
func New(agents []AgentMetadata) *Registry {
	byName := make(map[string]AgentMetadata, len(agents))
	kept := make([]AgentMetadata, 0, len(agents))
	for _, agent := range agents {
		name := strings.TrimSpace(agent.Name)
		if name == "" {
			continue
		}
		if _, ok := byName[name]; ok {
			continue
		}
		agent.Name = name
		byName[name] = agent
		kept = append(kept, agent)
	}
	return &Registry{agents: kept, byName: byName}
}

// FindAgentByName 按名称查找智能体元数据。
func (r *Registry) FindAgentByName(name string) (AgentMetadata, bool) {
	if r == nil {
		return AgentMetadata{}, false
	}
	meta, ok := r.byName[name]
	return meta, ok
}

// Agents 返回目录中全部条目的副本。
func (r *Registry) Agents() []AgentMetadata {
	if r == nil {
		return nil
	}
	clone := make([]AgentMetadata, len(r.agents))
	copy(clone, r.agents)
	return clone
}

// Len 返回目录条目数量。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.agents)
}

// registryFile 对应注册表 YAML 文件的顶层结构。
type registryFile struct {
	Agents []AgentMetadata `yaml:"agents"`
}

// Load 解析指定路径的 YAML 注册表文件。
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "注册表文件路径不能为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRegistryFailure, err, "读取注册表文件失败")
	}

	var file registryFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRegistryFailure, err, "解析注册表文件失败")
	}

	for idx, agent := range file.Agents {
		if strings.TrimSpace(agent.Name) == "" {
			return nil, xerrors.New(xerrors.CodeRegistryFailure,
				fmt.Sprintf("注册表第 %d 个条目缺少 name 字段", idx+1))
		}
	}

	return New(file.Agents), nil
}

// Loader 按需加载注册表，每次查询执行前调用一次以支持热更新。
type Loader func() (*Registry, error)

// FileLoader 返回从固定路径重新加载注册表的 Loader。
func FileLoader(path string) Loader {
	return func() (*Registry, error) {
		return Load(path)
	}
}
