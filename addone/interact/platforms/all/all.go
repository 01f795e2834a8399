// Package all 导入全部内置平台驱动，使其在 init 中完成注册
package all

import (
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/arista_eos"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/ciena_saos"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/cisco_asa"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/cisco_ios"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/cisco_ios_xr"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/cisco_nxos"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/cisco_sg300"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/fortinet_fortios"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/h3c_comware"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/huawei_vrp"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/juniper_junos"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/linux"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/paloalto_panos"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/vyos"
)
