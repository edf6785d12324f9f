package collector

import (
	"context"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// System is the source of host data for the collectors.
type System interface {
	Host(ctx context.Context) (HostInfo, error)
	Sessions(ctx context.Context) ([]Session, error)
	Memory(ctx context.Context) (MemoryInfo, error)
	Disks(ctx context.Context) ([]Disk, error)
	// Connections lists sockets of one kind: "tcp4", "tcp6", "udp4" or "udp6".
	Connections(ctx context.Context, kind string) ([]Conn, error)
	Interfaces(ctx context.Context) ([]Interface, error)
	// ProcessTimes is the cheap first half of a CPU sample.
	ProcessTimes(ctx context.Context) ([]ProcessTime, error)
	Processes(ctx context.Context) ([]Process, error)
}

type HostInfo struct {
	Hostname        string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	KernelArch      string
	BootTime        time.Time
}

type Session struct {
	User     string
	Terminal string
	ID       int
	State    string
	Idle     time.Duration // negative when unknown
	Logon    time.Time
}

type MemoryInfo struct {
	Total     uint64
	Available uint64
	SwapTotal uint64
	SwapFree  uint64
}

type Disk struct {
	Device     string
	Mountpoint string
	Fstype     string
	Total      uint64
	Free       uint64
	UsageErr   error
}

type Conn struct {
	LocalIP    string
	LocalPort  uint32
	RemoteIP   string
	RemotePort uint32
	Status     string
	Pid        int32
}

type Interface struct {
	Name         string
	HardwareAddr string
	MTU          int
	Flags        []string
	Addrs        []string
}

type ProcessTime struct {
	Pid int32
	CPU float64 // user plus system seconds; UnknownCPU when unreadable
}

type Process struct {
	Pid  int32
	Name string
	User string
	CPU  float64 // user plus system seconds; UnknownCPU when unreadable
	RSS  uint64
}

// UnknownCPU marks a CPU reading that failed. Such processes are listed
// without a CPU percentage.
const UnknownCPU = -1

// NewSystem returns a System backed by gopsutil.
func NewSystem() System { return psSystem{} }

type psSystem struct{}

func (psSystem) Host(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, err
	}
	return HostInfo{
		Hostname:        info.Hostname,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		KernelArch:      info.KernelArch,
		BootTime:        time.Unix(int64(info.BootTime), 0),
	}, nil
}

func (psSystem) Sessions(ctx context.Context) ([]Session, error) {
	users, err := host.UsersWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(users))
	for i, u := range users {
		out = append(out, Session{
			User:     u.User,
			Terminal: u.Terminal,
			ID:       i + 1,
			State:    "Active",
			Idle:     -1,
			Logon:    time.Unix(int64(u.Started), 0),
		})
	}
	return out, nil
}

func (psSystem) Memory(ctx context.Context) (MemoryInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, err
	}
	m := MemoryInfo{Total: vm.Total, Available: vm.Available}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		m.SwapTotal, m.SwapFree = sw.Total, sw.Free
	}
	return m, nil
}

func (psSystem) Disks(ctx context.Context) ([]Disk, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]Disk, 0, len(parts))
	for _, p := range parts {
		d := Disk{Device: p.Device, Mountpoint: p.Mountpoint, Fstype: p.Fstype}
		if u, err := disk.UsageWithContext(ctx, p.Mountpoint); err != nil {
			d.UsageErr = err
		} else {
			d.Total, d.Free = u.Total, u.Free
		}
		out = append(out, d)
	}
	return out, nil
}

func (psSystem) Connections(ctx context.Context, kind string) ([]Conn, error) {
	stats, err := net.ConnectionsWithContext(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]Conn, 0, len(stats))
	for _, c := range stats {
		if c.Type != syscall.SOCK_STREAM && c.Type != syscall.SOCK_DGRAM {
			continue
		}
		out = append(out, Conn{
			LocalIP:    c.Laddr.IP,
			LocalPort:  c.Laddr.Port,
			RemoteIP:   c.Raddr.IP,
			RemotePort: c.Raddr.Port,
			Status:     c.Status,
			Pid:        c.Pid,
		})
	}
	return out, nil
}

func (psSystem) Interfaces(ctx context.Context) ([]Interface, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifaces))
	for _, in := range ifaces {
		i := Interface{
			Name:         in.Name,
			HardwareAddr: in.HardwareAddr,
			MTU:          in.MTU,
			Flags:        in.Flags,
		}
		for _, a := range in.Addrs {
			i.Addrs = append(i.Addrs, a.Addr)
		}
		out = append(out, i)
	}
	return out, nil
}

func (psSystem) ProcessTimes(ctx context.Context) ([]ProcessTime, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProcessTime, 0, len(procs))
	for _, p := range procs {
		pt := ProcessTime{Pid: p.Pid, CPU: UnknownCPU}
		if t, err := p.TimesWithContext(ctx); err == nil {
			pt.CPU = t.User + t.System
		}
		out = append(out, pt)
	}
	return out, nil
}

func (psSystem) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Exited since the listing.
			continue
		}
		row := Process{Pid: p.Pid, Name: name, CPU: UnknownCPU}
		if t, err := p.TimesWithContext(ctx); err == nil {
			row.CPU = t.User + t.System
		}
		if m, err := p.MemoryInfoWithContext(ctx); err == nil {
			row.RSS = m.RSS
		}
		if u, err := p.UsernameWithContext(ctx); err == nil {
			row.User = u
		}
		out = append(out, row)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
