package profile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound 表示指定的 profile 文件不存在。
	ErrCodeNotFound = "profile_not_found"
	// ErrCodeInvalid 表示文件无法解析，或字段不合法。
	ErrCodeInvalid = "profile_invalid"
)

// Error 是 profile 加载阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到 profile 文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：profile 文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：profile 文件 %q 无效", e.Code, e.Path)
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

// LoadFile 从 yaml 文件读取一个站点配置。
//
// 叠加规则（固定）：文件里省略的字段落到平台默认值（Normalize 负责），
// 所以一个最小可用的 profile 只需要 name 和 base_url 两行。
func LoadFile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, &Error{Code: ErrCodeNotFound, Path: path, Err: err}
		}
		return Profile{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}

	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}

	np, err := p.Normalize()
	if err != nil {
		return Profile{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return np, nil
}
