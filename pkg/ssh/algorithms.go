package ssh

import "golang.org/x/crypto/ssh"

// AlgorithmSet 一组握手算法偏好，按顺序尝试，遗留算法放在最后
type AlgorithmSet struct {
	Name              string
	KeyExchanges      []string
	Ciphers           []string
	MACs              []string
	HostKeyAlgorithms []string
}

// ModernAlgorithms 现代设备与 OpenSSH 默认可协商的算法
var ModernAlgorithms = AlgorithmSet{
	Name: "modern",
	KeyExchanges: []string{
		"curve25519-sha256",
		"curve25519-sha256@libssh.org",
		"ecdh-sha2-nistp256",
		"ecdh-sha2-nistp384",
		"ecdh-sha2-nistp521",
		"diffie-hellman-group16-sha512",
		"diffie-hellman-group14-sha256",
	},
	Ciphers: []string{
		"aes128-gcm@openssh.com",
		"aes256-gcm@openssh.com",
		"chacha20-poly1305@openssh.com",
		"aes128-ctr",
		"aes192-ctr",
		"aes256-ctr",
	},
	MACs: []string{
		"hmac-sha2-256-etm@openssh.com",
		"hmac-sha2-512-etm@openssh.com",
		"hmac-sha2-256",
		"hmac-sha2-512",
	},
	HostKeyAlgorithms: []string{
		ssh.KeyAlgoED25519,
		ssh.KeyAlgoECDSA256,
		ssh.KeyAlgoECDSA384,
		ssh.KeyAlgoECDSA521,
		ssh.KeyAlgoRSASHA256,
		ssh.KeyAlgoRSASHA512,
	},
}

// CompatibleAlgorithms 加入 sha1 系列，兼容较老的交换机/防火墙
var CompatibleAlgorithms = AlgorithmSet{
	Name: "compatible",
	KeyExchanges: []string{
		"ecdh-sha2-nistp256",
		"diffie-hellman-group14-sha256",
		"diffie-hellman-group-exchange-sha256",
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group-exchange-sha1",
	},
	Ciphers: []string{
		"aes128-ctr",
		"aes192-ctr",
		"aes256-ctr",
		"aes128-gcm@openssh.com",
	},
	MACs: []string{
		"hmac-sha2-256",
		"hmac-sha1",
	},
	HostKeyAlgorithms: []string{
		ssh.KeyAlgoRSASHA256,
		ssh.KeyAlgoRSASHA512,
		ssh.KeyAlgoRSA,
		ssh.KeyAlgoECDSA256,
		ssh.KeyAlgoED25519,
	},
}

// LegacyAlgorithms 仅在前面的集合全部失败后使用（CBC、group1、ssh-dss）
var LegacyAlgorithms = AlgorithmSet{
	Name: "legacy",
	KeyExchanges: []string{
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group1-sha1",
		"diffie-hellman-group-exchange-sha1",
	},
	Ciphers: []string{
		"aes128-ctr",
		"aes256-ctr",
		"aes128-cbc",
		"3des-cbc",
	},
	MACs: []string{
		"hmac-sha1",
		"hmac-sha1-96",
	},
	HostKeyAlgorithms: []string{
		ssh.KeyAlgoRSA,
		"ssh-dss",
		ssh.KeyAlgoRSASHA256,
	},
}

// DefaultAlgorithmSets 默认回退顺序
func DefaultAlgorithmSets() []AlgorithmSet {
	return []AlgorithmSet{ModernAlgorithms, CompatibleAlgorithms, LegacyAlgorithms}
}

func (a AlgorithmSet) apply(cfg *ssh.ClientConfig) {
	cfg.KeyExchanges = a.KeyExchanges
	cfg.Ciphers = a.Ciphers
	cfg.MACs = a.MACs
	cfg.HostKeyAlgorithms = a.HostKeyAlgorithms
}
