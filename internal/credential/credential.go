package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/azerpas/bourso-desktop/internal/store"
)

// FileName 为凭证文件名。
const FileName = "credentials.json"

// Credentials 为券商登录凭证。字段缺失表示未保存。
type Credentials struct {
	ClientID string `json:"clientId,omitempty"`
	Password string `json:"password,omitempty"`
}

// HasPassword 报告是否保存了密码。
func (c Credentials) HasPassword() bool {
	return c.Password != ""
}

// HasClientID 报告是否保存了客户号。
func (c Credentials) HasClientID() bool {
	return c.ClientID != ""
}

// Source 读取与保存凭证。Load 在凭证不存在时返回空值而非错误。
type Source interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// File 把凭证保存在 {"clientId","password"} 格式的 JSON 文件中。
type File struct {
	file *store.JSONFile
}

// NewFile 创建文件凭证源。
func NewFile(path string) *File {
	return &File{file: store.NewJSONFile(path)}
}

func (f *File) Load(context.Context) (Credentials, error) {
	f.file.Lock()
	defer f.file.Unlock()

	var creds Credentials
	if _, err := f.file.Read(&creds); err != nil {
		return Credentials{}, fmt.Errorf("credential: 读取凭证文件失败: %w", err)
	}
	return creds, nil
}

func (f *File) Save(_ context.Context, creds Credentials) error {
	f.file.Lock()
	defer f.file.Unlock()

	if err := f.file.Write(creds); err != nil {
		return fmt.Errorf("credential: 写入凭证文件失败: %w", err)
	}
	return nil
}

const (
	keyClientID = "clientId"
	keyPassword = "password"
)

// Keyring 把凭证保存在系统钥匙串中。
type Keyring struct {
	service string
}

// NewKeyring 创建钥匙串凭证源。
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = "bourso-dca"
	}
	return &Keyring{service: service}
}

func (k *Keyring) Load(context.Context) (Credentials, error) {
	clientID, err := k.get(keyClientID)
	if err != nil {
		return Credentials{}, err
	}
	password, err := k.get(keyPassword)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{ClientID: clientID, Password: password}, nil
}

// Save 写入非空字段，空字段会从钥匙串删除。
func (k *Keyring) Save(_ context.Context, creds Credentials) error {
	if err := k.put(keyClientID, creds.ClientID); err != nil {
		return err
	}
	return k.put(keyPassword, creds.Password)
}

func (k *Keyring) get(key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("credential: 读取钥匙串 %s 失败: %w", key, err)
	}
	return value, nil
}

func (k *Keyring) put(key, value string) error {
	if value == "" {
		err := keyring.Delete(k.service, key)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("credential: 删除钥匙串 %s 失败: %w", key, err)
		}
		return nil
	}
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("credential: 写入钥匙串 %s 失败: %w", key, err)
	}
	return nil
}
