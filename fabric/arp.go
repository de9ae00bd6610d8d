package fabric

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// arpCachePath is the Linux neighbor table in procfs.
const arpCachePath = "/proc/net/arp"

// incompleteMAC marks neighbor entries the kernel has not resolved yet.
const incompleteMAC = "00:00:00:00:00:00"

// ErrNoARPEntry indicates the IP has no resolved entry in the ARP cache.
var ErrNoARPEntry = errors.New("no arp entry")

// ARPEntry is a single resolved row of the kernel neighbor table.
type ARPEntry struct {
	IP     net.IP
	MAC    net.HardwareAddr
	Device string // interface the entry was learned on.
}

// ARPTable returns all resolved entries of the kernel ARP cache.
func ARPTable() ([]ARPEntry, error) {
	f, err := os.Open(arpCachePath)
	if err != nil {
		return nil, fmt.Errorf("opening arp cache: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parseARPTable(f)
}

// LookupMAC resolves the hardware address of ip from the ARP cache.
// It returns ErrNoARPEntry when the kernel has no resolved entry for ip.
func LookupMAC(ip net.IP) (net.HardwareAddr, error) {
	entries, err := ARPTable()
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.IP.Equal(ip) {
			return e.MAC, nil
		}
	}

	return nil, fmt.Errorf("%w for %s", ErrNoARPEntry, ip)
}

// parseARPTable parses the procfs neighbor table format:
//
//	IP address  HW type  Flags  HW address  Mask  Device
//
// Incomplete entries (all-zero MAC) are skipped.
func parseARPTable(r io.Reader) ([]ARPEntry, error) {
	var entries []ARPEntry

	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		if first {
			first = false // header row.
			continue
		}

		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}

		if fields[3] == incompleteMAC {
			continue
		}

		ip := net.ParseIP(fields[0])
		if ip == nil {
			continue
		}

		mac, err := net.ParseMAC(fields[3])
		if err != nil {
			continue
		}

		entries = append(entries, ARPEntry{
			IP:     ip,
			MAC:    mac,
			Device: fields[5],
		})
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading arp cache: %w", err)
	}

	return entries, nil
}
