package host

import (
	"fmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	pshost "github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"k8s.io/klog/v2"
)

type ResponseModel struct {
	Info  interface{} `json:"info,omitempty"`
	Cpus  interface{} `json:"cpus,omitempty"`
	Mem   interface{} `json:"mem,omitempty"`
	Disks interface{} `json:"disk,omitempty"`
}

type InfoStat struct {
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernelVersion"`
	Uptime        uint64 `json:"uptime"`
}

type MemUsageInfo struct {
	Total       string
	Used        string
	UsedPercent string
}

type DiskUsageInfo struct {
	Path        string
	Total       string
	Used        string
	UsedPercent string
}

const mb = 1024 * 1024

func getInfo() (*InfoStat, error) {
	info, err := pshost.Info()
	if err != nil {
		klog.V(2).InfoS("Failed to get host info", "err", err)
		return nil, err
	}
	return &InfoStat{
		Hostname:      info.Hostname,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		Uptime:        info.Uptime,
	}, nil
}

// getCpu returns the usage of every logical cpu in percent.
func getCpu() ([]string, error) {
	percents, err := cpu.Percent(0, true)
	if err != nil {
		klog.V(2).InfoS("Failed to get cpu usage", "err", err)
		return nil, err
	}
	usage := make([]string, 0, len(percents))
	for _, p := range percents {
		usage = append(usage, formatPercent(p))
	}
	return usage, nil
}

func getMem() (*MemUsageInfo, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		klog.V(2).InfoS("Failed to get memory usage", "err", err)
		return nil, err
	}
	return &MemUsageInfo{
		Total:       formatMB(vm.Total),
		Used:        formatMB(vm.Used),
		UsedPercent: formatPercent(vm.UsedPercent),
	}, nil
}

func getDisk() ([]DiskUsageInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		klog.V(2).InfoS("Failed to list disk partitions", "err", err)
		return nil, err
	}
	disks := make([]DiskUsageInfo, 0, len(partitions))
	for _, partition := range partitions {
		usage, err := disk.Usage(partition.Mountpoint)
		if err != nil {
			klog.V(4).InfoS("Skipped disk partition", "mountpoint", partition.Mountpoint, "err", err)
			continue
		}
		disks = append(disks, DiskUsageInfo{
			Path:        usage.Path,
			Total:       formatMB(usage.Total),
			Used:        formatMB(usage.Used),
			UsedPercent: formatPercent(usage.UsedPercent),
		})
	}
	return disks, nil
}

func formatMB(b uint64) string {
	return fmt.Sprintf("%dMB", b/mb)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
