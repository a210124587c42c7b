package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/pageshift/internal/domain"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件/.env/环境变量无法解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingFolder 表示 CLI、环境变量、配置文件都没有给出目标目录。
	ErrCodeMissingFolder = domain.ErrCodeConfigMissingFolder
)

const (
	KindImages     = "images"
	KindThumbnails = "thumbnails"

	// DefaultRoot 是 doc 推导目录时的默认根（FlipBooker 的 public/ 目录）。
	DefaultRoot = "public"
	// DefaultKind 是 doc 推导目录时的默认子目录。
	DefaultKind = KindImages
)

// 环境变量（也可以写在 <cwd>/.env 中；进程环境优先）。
const (
	EnvFolder = "PAGESHIFT_FOLDER"
	EnvDoc    = "PAGESHIFT_DOC"
	EnvKind   = "PAGESHIFT_KIND"
	EnvRoot   = "PAGESHIFT_ROOT"
	EnvDryRun = "PAGESHIFT_DRY_RUN"
)

// FileNames 是未指定 --config 时在 cwd 下依次尝试的配置文件（均可选）。
var FileNames = []string{"pageshift.json", "pageshift.yaml", "pageshift.yml"}

// CLIArgs 是 CLI 暴露的入口参数，并保留"是否显式指定"的信息。
// 字符串字段以非空视为显式指定；--dry-run=false 必须能覆盖配置中的 dry_run=true，因此单独保留 DryRunSet。
type CLIArgs struct {
	Folder string
	Doc    string
	Kind   string
	Root   string

	DryRun    bool
	DryRunSet bool

	ConfigPath string
}

// FileConfig 对应 pageshift.json / pageshift.yaml 的解析结构。
type FileConfig struct {
	Folder string `json:"folder" yaml:"folder"`
	Doc    string `json:"doc" yaml:"doc"`
	Kind   string `json:"kind" yaml:"kind"`
	Root   string `json:"root" yaml:"root"`
	DryRun *bool  `json:"dry_run" yaml:"dry_run"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Folder 是目标目录（clean + absolute）。
	Folder string
	DryRun bool

	// Doc/Kind 仅当 Folder 由 <root>/<kind>/<doc> 推导得出时非空，用于展示。
	Doc  string
	Kind string

	// Source 标记 Folder 的来源："cli" | "env" | "file"。
	Source string
	// ConfigFile 是实际读取到的配置文件（未读取则为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingFolder:
		return fmt.Sprintf("%s：未指定目标目录（参数 folder、--doc、%s/%s 或配置文件 folder/doc 至少需要一个）", e.Code, EnvFolder, EnvDoc)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：%q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：%q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 .env 与配置文件，然后与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：CLI > 环境变量（进程环境 > <cwd>/.env）> 配置文件 > 默认值。
//
// 目标目录按层解析：第一个给出 folder 或 doc 的层胜出；同一层内 folder 优先于 doc。
// doc 推导为 <root>/<kind>/<doc>，root/kind 各自独立按优先级取值。
// 相对路径一律以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	env, err := loadEnv(cwdAbs)
	if err != nil {
		return EffectiveConfig{}, err
	}

	fc, cfgPath, err := discoverFileConfig(cwdAbs, cli.ConfigPath)
	if err != nil {
		return EffectiveConfig{}, err
	}

	return merge(cwdAbs, cli, env, fc, cfgPath)
}

type layer struct {
	name   string
	folder string
	doc    string
}

func merge(cwdAbs string, cli CLIArgs, env envLookup, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	kind := firstNonEmpty(cli.Kind, env(EnvKind), fc.Kind, DefaultKind)
	if err := validateKind(kind); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: sourceOf(cli.Kind, env(EnvKind), EnvKind, cfgPath), Err: err}
	}
	root := firstNonEmpty(cli.Root, env(EnvRoot), fc.Root, DefaultRoot)

	layers := []layer{
		{name: "cli", folder: strings.TrimSpace(cli.Folder), doc: strings.TrimSpace(cli.Doc)},
		{name: "env", folder: env(EnvFolder), doc: env(EnvDoc)},
		{name: "file", folder: strings.TrimSpace(fc.Folder), doc: strings.TrimSpace(fc.Doc)},
	}

	eff := EffectiveConfig{ConfigFile: cfgPath}
	for _, l := range layers {
		if l.folder != "" {
			eff.Folder = absCleanFrom(cwdAbs, l.folder)
			eff.Source = l.name
			break
		}
		if l.doc != "" {
			if err := validateDoc(l.doc); err != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: layerPath(l.name, EnvDoc, cfgPath), Err: err}
			}
			eff.Folder = absCleanFrom(cwdAbs, filepath.Join(root, kind, l.doc))
			eff.Doc = l.doc
			eff.Kind = kind
			eff.Source = l.name
			break
		}
	}
	if eff.Folder == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingFolder, Path: cfgPath}
	}

	// dry_run：CLI > env > config > 默认 false
	switch {
	case cli.DryRunSet:
		eff.DryRun = cli.DryRun
	case env(EnvDryRun) != "":
		v, err := strconv.ParseBool(env(EnvDryRun))
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: EnvDryRun, Err: fmt.Errorf("只能是布尔值，实际是 %q", env(EnvDryRun))}
		}
		eff.DryRun = v
	case fc.DryRun != nil:
		eff.DryRun = *fc.DryRun
	}

	return eff, nil
}

func validateKind(k string) error {
	switch k {
	case KindImages, KindThumbnails:
		return nil
	default:
		return fmt.Errorf("kind 只能是 %s 或 %s，实际是 %q", KindImages, KindThumbnails, k)
	}
}

// validateDoc 只允许单层目录名，避免通过 doc 跳出 <root>/<kind>/。
func validateDoc(doc string) error {
	if doc == "." || doc == ".." || strings.ContainsAny(doc, `/\`) {
		return fmt.Errorf("doc 必须是单层目录名，实际是 %q", doc)
	}
	return nil
}

// envLookup 返回去除首尾空白后的值；未设置返回空串。
type envLookup func(key string) string

// loadEnv 读取 <cwd>/.env（可选）。进程环境优先，.env 只补充未设置的变量（与 godotenv.Load 的不覆盖语义一致），
// 但这里不修改进程环境。
func loadEnv(cwdAbs string) (envLookup, error) {
	path := filepath.Join(cwdAbs, ".env")
	dotenv, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		dotenv = map[string]string{}
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}, nil
}

// discoverFileConfig 读取 --config 指定的文件（必须存在），或在 cwd 下按 FileNames 顺序尝试（可选）。
func discoverFileConfig(cwdAbs, explicit string) (FileConfig, string, error) {
	if strings.TrimSpace(explicit) != "" {
		path := absCleanFrom(cwdAbs, explicit)
		fc, exists, err := readFileConfig(path)
		if err != nil {
			return FileConfig{}, "", &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		if !exists {
			return FileConfig{}, "", &Error{Code: ErrCodeNotFound, Path: path, Err: os.ErrNotExist}
		}
		return fc, path, nil
	}

	for _, name := range FileNames {
		path := filepath.Join(cwdAbs, name)
		fc, exists, err := readFileConfig(path)
		if err != nil {
			return FileConfig{}, "", &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		if exists {
			return fc, path, nil
		}
	}
	return FileConfig{}, "", nil
}

// readFileConfig 按扩展名解析 JSON 或 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = fmt.Errorf("不支持的配置文件类型：%q（仅支持 .json/.yaml/.yml）", filepath.Ext(path))
	}
	if err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// sourceOf 用于错误定位：返回胜出值的来源标识。
func sourceOf(cliVal, envVal, envKey, cfgPath string) string {
	switch {
	case strings.TrimSpace(cliVal) != "":
		return "cli"
	case envVal != "":
		return envKey
	default:
		return cfgPath
	}
}

func layerPath(name, envKey, cfgPath string) string {
	switch name {
	case "env":
		return envKey
	case "file":
		return cfgPath
	default:
		return name
	}
}
