package ble

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/netip"
	"runtime"
	"slices"
	"strconv"

	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
)

// CollectBotDeviceModel describes the host. Fields the platform cannot
// report are left empty.
func CollectBotDeviceModel(ctx context.Context, hostName, buildDate string, network models.NetworkModel, log logging.Logger) models.BotDeviceModel {
	m := models.BotDeviceModel{
		Platform:   runtime.GOOS,
		Release:    buildDate,
		Arch:       runtime.GOARCH,
		CPUs:       strconv.Itoa(runtime.NumCPU()),
		Hostname:   hostName,
		Endianness: endianness(),
		Network:    network.SSID,
		IP:         network.IP,
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		log.Debug(ctx, "host info unavailable", "error", err)
	} else {
		m.Platform = info.OS
		m.Type = info.Platform
		if info.PlatformVersion != "" {
			m.Type += " " + info.PlatformVersion
		}
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		m.CPUs = strconv.Itoa(n)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Debug(ctx, "memory info unavailable", "error", err)
	} else {
		m.TotalMemory = fmt.Sprintf("%d/%d", vm.Available, vm.Total)
	}

	return m
}

// LocalIP returns the first IPv4 address of an up, non-loopback interface.
func LocalIP(ctx context.Context) string {
	ifaces, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			p, err := netip.ParsePrefix(a.Addr)
			if err != nil {
				continue
			}
			if ip := p.Addr(); ip.Is4() && !ip.IsLoopback() {
				return ip.String()
			}
		}
	}
	return ""
}

func endianness() string {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return "little"
	}
	return "big"
}
