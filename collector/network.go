package collector

import (
	"cmp"
	"context"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/axians/clientlog/arena"
)

// maxPort is the size of one port space, used for the usage percentage.
const maxPort = 0xFFFF

// IPConfig renders [ipconfig]: every network interface with its hardware
// address and IP addresses.
func IPConfig(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[ipconfig]"); err != nil {
		return err
	}
	ifaces, err := env.System.Interfaces(ctx)
	if err != nil {
		env.logger().Warn("interfaces unavailable", "error", err)
		return s.Appendf("\n(Unable to list network interfaces)")
	}
	for _, in := range ifaces {
		if err := indent(&s, 0, "%s", in.Name); err != nil {
			return err
		}
		if in.HardwareAddr != "" {
			if err := indent(&s, 1, "Physical Address: %s", in.HardwareAddr); err != nil {
				return err
			}
		}
		if err := indent(&s, 1, "MTU:              %d", in.MTU); err != nil {
			return err
		}
		if len(in.Flags) > 0 {
			if err := indent(&s, 1, "Flags:            %s", strings.Join(in.Flags, ", ")); err != nil {
				return err
			}
		}
		for _, addr := range in.Addrs {
			if err := indent(&s, 1, "Address:          %s", addr); err != nil {
				return err
			}
		}
	}
	return nil
}

type portTable struct {
	family, proto, kind string
	conns               []Conn
	err                 error
}

// Ports renders [winportsused] with per-table socket counts followed by
// [winports] with every socket. Consecutive sockets of one local address and
// process are folded into a single row with a port span note.
func Ports(ctx context.Context, env *Env, s arena.Scratch) error {
	tables := [...]portTable{
		{family: "IPv4", proto: "TCP", kind: "tcp4"},
		{family: "IPv6", proto: "TCP", kind: "tcp6"},
		{family: "IPv4", proto: "UDP", kind: "udp4"},
		{family: "IPv6", proto: "UDP", kind: "udp6"},
	}
	failed := 0
	for i := range tables {
		t := &tables[i]
		t.conns, t.err = env.System.Connections(ctx, t.kind)
		if t.err != nil {
			env.logger().Warn("connections unavailable", "kind", t.kind, "error", t.err)
			failed++
		}
	}
	note := ""
	switch failed {
	case 0:
	case len(tables):
		note = "\n(Unable to get networking statistics)"
	default:
		note = "\n(Unable to get some of the networking statistics)"
	}

	if err := s.Appendf("[winportsused]"); err != nil {
		return err
	}
	if err := s.Appendf("\n%-15s\t%-15s\t%15s\t%13s", "IP version", "Protocol", "Ports Used #", "Ports Used %"); err != nil {
		return err
	}
	for _, t := range tables {
		if t.err != nil {
			continue
		}
		pct := 100 * float64(len(t.conns)) / maxPort
		if err := s.Appendf("\n%-15s\t%-15s\t%15d\t%13.2f", t.family, t.proto, len(t.conns), pct); err != nil {
			return err
		}
	}
	if err := s.Appendf("%s", note); err != nil {
		return err
	}

	if err := s.Appendf("\n[winports]"); err != nil {
		return err
	}
	if err := s.Appendf("\n%-7s\t%-31s\t%-31s\t%-15s\t%7s", "Proto.", "Local Address", "Foreign Address", "State", "PID"); err != nil {
		return err
	}
	mark := s.Save()
	for _, t := range tables {
		if t.err != nil {
			continue
		}
		if err := appendConns(&s, t.proto, t.conns); err != nil {
			return err
		}
		s.Rewind(mark)
	}
	return s.Appendf("%s", note)
}

// appendConns writes the rows of one table. The sort order is kept in an
// index slice on scratch; conns itself is left untouched.
func appendConns(s *arena.Scratch, proto string, conns []Conn) error {
	order, err := arena.AllocSlice[int32](s, len(conns))
	if err != nil {
		return err
	}
	for i := range order {
		order[i] = int32(i)
	}
	slices.SortStableFunc(order, func(a, b int32) int {
		ca, cb := &conns[a], &conns[b]
		if c := strings.Compare(ca.LocalIP, cb.LocalIP); c != 0 {
			return c
		}
		if c := cmp.Compare(ca.Pid, cb.Pid); c != 0 {
			return c
		}
		return cmp.Compare(ca.LocalPort, cb.LocalPort)
	})

	for i := 0; i < len(order); {
		c := &conns[order[i]]
		span := 1
		for i+span < len(order) {
			next := &conns[order[i+span]]
			if next.LocalIP != c.LocalIP || next.Pid != c.Pid {
				break
			}
			span++
		}

		remote, state := "*:*", ""
		if proto == "TCP" {
			remote = hostPort(c.RemoteIP, c.RemotePort)
			state = portState(c.Status)
		}
		if err := s.Appendf("\n%-7s\t%-31s\t%-31s\t%-15s\t%7d",
			proto, hostPort(c.LocalIP, c.LocalPort), remote, state, c.Pid); err != nil {
			return err
		}
		if span > 1 {
			last := conns[order[i+span-1]].LocalPort
			if err := s.Appendf("\n\t...the above IP and PID spans %d additional ports, up to and including port %d", span-1, last); err != nil {
				return err
			}
		}
		i += span
	}
	return nil
}

func hostPort(ip string, port uint32) string {
	if ip == "" {
		ip = "0.0.0.0"
	}
	return net.JoinHostPort(ip, strconv.FormatUint(uint64(port), 10))
}

func portState(status string) string {
	switch status {
	case "":
		return "(Unknown)"
	case "LISTEN":
		return "LISTENING"
	case "SYN_RECV":
		return "SYN_RECEIVED"
	case "FIN_WAIT_1":
		return "FIN_WAIT1"
	case "FIN_WAIT_2":
		return "FIN_WAIT2"
	}
	return status
}
