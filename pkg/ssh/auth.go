package ssh

import (
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

// 认证方式
const (
	AuthPassword   = "password"
	AuthPrivateKey = "privateKey"
)

// Auth 认证参数
type Auth struct {
	Method     string
	Password   string
	PrivateKey string // PEM 文本
	Passphrase string
}

// ParsePrivateKey 解析并校验私钥，必须在任何网络连接之前调用
func ParsePrivateKey(pemText, passphrase string) (ssh.Signer, error) {
	if strings.TrimSpace(pemText) == "" {
		return nil, errs.New(errs.KindInvalidKey, "private key is empty")
	}
	if !strings.Contains(pemText, "-----BEGIN") || !strings.Contains(pemText, "PRIVATE KEY-----") {
		return nil, errs.New(errs.KindInvalidKey, "private key is not in PEM format")
	}

	var (
		signer ssh.Signer
		err    error
	)
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(pemText), []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey([]byte(pemText))
	}
	if err != nil {
		if _, ok := err.(*ssh.PassphraseMissingError); ok {
			return nil, errs.Wrap(errs.KindInvalidKey, err, "private key is encrypted and no passphrase was given")
		}
		return nil, errs.Wrap(errs.KindInvalidKey, err, "failed to parse private key")
	}
	return signer, nil
}

// Methods 构造认证方法列表。密码认证同时提供 keyboard-interactive，
// 很多网络设备只接受后者。
func (a Auth) Methods() ([]ssh.AuthMethod, error) {
	switch a.Method {
	case AuthPrivateKey:
		signer, err := ParsePrivateKey(a.PrivateKey, a.Passphrase)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	case AuthPassword, "":
		password := a.Password
		return []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		}, nil
	default:
		return nil, errs.New(errs.KindConfigurationError, "unknown auth method %q", a.Method)
	}
}
