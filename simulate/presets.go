package simulate

// CiscoIOS 典型 IOS 交换机：需要 enable，running-config 分页
func CiscoIOS(hostname string) *DeviceProfile {
	return &DeviceProfile{
		Hostname:         hostname,
		UserSuffix:       ">",
		PrivSuffix:       "#",
		EnablePassword:   "nova",
		ConfigCommand:    "configure terminal",
		ConfigPrompt:     "%s(config)#",
		ExitConfig:       []string{"end", "exit"},
		PagingOffCommand: "terminal length 0",
		Outputs: map[string]string{
			"terminal width 511": "",
			"show version":       "Cisco IOS Software, C2960 Software (C2960-LANBASEK9-M), Version 15.0(2)SE11\nROM: Bootstrap program is C2960 boot loader\n" + hostname + " uptime is 3 weeks, 2 days",
			"show clock":         "*10:15:42.123 UTC Mon Mar 4 2024",
			"show running-config": "Building configuration...\n\nCurrent configuration : 1024 bytes\n!\nhostname " + hostname +
				"\n!\ninterface GigabitEthernet0/1\n description uplink\n!\nend",
			"show ip interface brief":      "Interface              IP-Address      OK? Method Status                Protocol\nVlan1                  10.0.0.1        YES NVRAM  up                    up",
			"interface GigabitEthernet0/1": "",
		},
		InvalidConfig: []string{"bogus command"},
		Paged:         map[string]bool{"show running-config": true},
		Silent:        map[string]bool{"debug all": true},
		SaveCommand:   "write memory",
		SaveOutput:    "Building configuration...\n[OK]",
		RebootCommand: "reload",
		RebootConfirm: "Proceed with reload? [confirm]",
	}
}

// CiscoIOSUnsaved 有未保存修改的 IOS 设备，reload 前先询问是否保存
func CiscoIOSUnsaved(hostname string) *DeviceProfile {
	p := CiscoIOS(hostname)
	p.RebootSavePrompt = "System configuration has been modified. Save? [yes/no]: "
	return p
}

// HuaweiVRP 华为 VRP 设备，<HUAWEI> / [HUAWEI]
func HuaweiVRP(hostname string) *DeviceProfile {
	return &DeviceProfile{
		Hostname:         hostname,
		PromptPrefix:     "<",
		UserSuffix:       ">",
		ConfigCommand:    "system-view",
		ConfigPrompt:     "[%s]",
		ExitConfig:       []string{"return", "quit"},
		PagingOffCommand: "screen-length 0 temporary",
		ErrorOutput:      "              ^\nError: Unrecognized command found at '^' position.",
		Outputs: map[string]string{
			"display version":                "Huawei Versatile Routing Platform Software\nVRP (R) software, Version 5.170 (S5720 V200R011C10SPC500)",
			"display current-configuration":  "#\nsysname " + hostname + "\n#\ninterface GigabitEthernet0/0/1\n#\nreturn",
			"interface GigabitEthernet0/0/1": "",
		},
		InvalidConfig: []string{"bogus command"},
		SaveCommand:   "save",
		SaveConfirm:   "The current configuration will be written to the device.\r\nAre you sure to continue?[Y/N]:",
		SaveOutput:    "Now saving the current configuration to the slot 0.\nSave the configuration successfully.",
		RebootCommand: "reboot",
		RebootConfirm: "System will reboot! Continue ? [y/n]:",
	}
}

// JuniperJunos Junos 设备，配置需 commit
func JuniperJunos(hostname string) *DeviceProfile {
	return &DeviceProfile{
		Hostname:         hostname,
		PromptPrefix:     "admin@",
		UserSuffix:       ">",
		ConfigCommand:    "configure",
		ConfigPrompt:     "\r\n[edit]\r\nadmin@%s#",
		ExitConfig:       []string{"exit configuration-mode"},
		CommitCommand:    "commit",
		AbortCommand:     "rollback 0",
		PagingOffCommand: "set cli screen-length 0",
		ErrorOutput:      "                      ^\nsyntax error, expecting <command>.",
		Outputs: map[string]string{
			"set cli screen-width 511":                   "",
			"set cli complete-on-space off":              "",
			"show version":                               "Hostname: " + hostname + "\nModel: srx300\nJunos: 20.4R3.8",
			"show configuration | display set | no-more": "set system host-name " + hostname + "\nset interfaces ge-0/0/0 unit 0 family inet address 10.0.0.1/24",
			"set interfaces ge-0/0/1 description uplink": "",
			"set system host-name " + hostname:           "",
		},
		InvalidConfig: []string{"bogus command"},
		RebootCommand: "request system reboot",
		RebootConfirm: "Reboot the system ? [yes,no] (no) ",
	}
}

// Linux 通用 Linux 主机
func Linux(hostname string) *DeviceProfile {
	return &DeviceProfile{
		Hostname:     hostname,
		PromptPrefix: "admin@",
		UserSuffix:   ":~$",
		ErrorOutput:  "bash: command not found",
		Outputs: map[string]string{
			"uname -a": "Linux " + hostname + " 5.15.0-91-generic #101-Ubuntu SMP x86_64 GNU/Linux",
		},
		ExecOutputs: map[string]string{
			"uname -a":               "Linux " + hostname + " 5.15.0-91-generic #101-Ubuntu SMP x86_64 GNU/Linux\n",
			"hostname":               hostname + "\n",
			"cat /etc/os-release":    "NAME=\"Ubuntu\"\nVERSION=\"22.04.3 LTS (Jammy Jellyfish)\"\n",
			"ip -brief address show": "lo UNKNOWN 127.0.0.1/8\neth0 UP 10.0.0.5/24\n",
			"echo configured":        "configured\n",
		},
	}
}
