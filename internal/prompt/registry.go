package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"concord/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 中文说明：
// 提示词注册表。评估系统/用户模板是纯文本文件（日期与数据用 $$$$$$ 占位），
// 挑战提示词集合是 YAML 文件并支持热更新；任一文件缺失时回退到内置默认值。

const datePlaceholder = "$$$$$$"

const (
	systemTemplateFile = "appraisal_system.txt"
	userTemplateFile   = "appraisal_user.txt"
)

// FileConfig 映射 challenge_prompts。
type FileConfig struct {
	ChallengePrompts []string `mapstructure:"challenge_prompts" yaml:"challenge_prompts"`
}

// Snapshot 公开的提示词快照。
type Snapshot struct {
	Version        int64
	LoadedAt       time.Time
	SystemTemplate string
	UserTemplate   string
	Challenges     []string
}

// Registry 管理提示词模板与挑战集合。
type Registry struct {
	dir           string
	challengePath string
	v             *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取提示词目录与挑战集合文件，并监听挑战集合更新。
func NewRegistry(dir, challengePath string) (*Registry, error) {
	r := &Registry{dir: strings.TrimSpace(dir), challengePath: strings.TrimSpace(challengePath)}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if r.challengePath != "" {
		if _, err := os.Stat(r.challengePath); err == nil {
			v := viper.New()
			v.SetConfigFile(r.challengePath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read challenge prompt set failed: %w", err)
			}
			r.v = v
			v.OnConfigChange(func(evt fsnotify.Event) {
				if err := r.reload(); err != nil {
					logger.Errorf("challenge prompt reload failed: %v", err)
				}
			})
			v.WatchConfig()
		} else {
			logger.Warnf("挑战提示词文件 %s 不存在，使用内置默认集合", r.challengePath)
		}
	}
	return r, nil
}

// Snapshot 返回当前提示词快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// AppraisalSystem 渲染评估系统提示词，填入预测目标日期。
func (r *Registry) AppraisalSystem(targetDate string) string {
	r.mu.RLock()
	tpl := r.snapshot.SystemTemplate
	r.mu.RUnlock()
	if targetDate == "" {
		targetDate = "the current date"
	}
	return strings.Replace(tpl, datePlaceholder, targetDate, 1)
}

// AppraisalUser 渲染评估用户提示词，填入 NFT 数据 JSON。
func (r *Registry) AppraisalUser(nftJSON string) string {
	r.mu.RLock()
	tpl := r.snapshot.UserTemplate
	r.mu.RUnlock()
	return strings.Replace(tpl, datePlaceholder, nftJSON, 1)
}

// ChallengePrompts 返回当前挑战提示词集合。
func (r *Registry) ChallengePrompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.snapshot.Challenges...)
}

func (r *Registry) reload() error {
	system := readTemplateFile(filepath.Join(r.dir, systemTemplateFile), defaultSystemTemplate)
	user := readTemplateFile(filepath.Join(r.dir, userTemplateFile), defaultUserTemplate)

	challenges := append([]string(nil), defaultChallengePrompts...)
	if r.challengePath != "" {
		if loaded, err := readChallengeFile(r.challengePath); err == nil && len(loaded) > 0 {
			challenges = loaded
		} else if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:        r.snapshot.Version + 1,
		LoadedAt:       time.Now(),
		SystemTemplate: system,
		UserTemplate:   user,
		Challenges:     challenges,
	}
	r.mu.Unlock()
	logger.Infof("提示词注册表已加载: 挑战提示词 %d 条", len(challenges))
	return nil
}

func readTemplateFile(path, fallback string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("读取提示词模板 %s 失败: %v", path, err)
		}
		return fallback
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return fallback
	}
	return content
}

func readChallengeFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse challenge prompt set failed: %w", err)
	}
	out := make([]string, 0, len(cfg.ChallengePrompts))
	for _, p := range cfg.ChallengePrompts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := src
	dst.Challenges = append([]string(nil), src.Challenges...)
	return dst
}
