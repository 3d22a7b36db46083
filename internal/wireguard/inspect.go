package wireguard

import (
	"fmt"
	"strconv"
	"strings"

	"wgwatch/internal/model"
)

const (
	headerFields = 3
	peerFields   = 8
)

// ParseDump parses the output of `wg show <iface> dump`.
//
// The first non-empty line is the interface header:
//
//	public_key \t private_key \t listening_port \t fwmark
//
// wg(8) swaps the two keys; headerPublicKey tells them apart so the private
// key is never stored.
//
// Every following line is a peer:
//
//	public_key \t preshared_key \t endpoint \t allowed_ips \t latest_handshake \t transfer_rx \t transfer_tx \t persistent_keepalive
//
// Bad lines are skipped and reported; they never invalidate the rest of the
// dump. When a public key repeats, the last line wins.
func ParseDump(iface, dump string) (model.Snapshot, []ParseWarning) {
	snap := model.Snapshot{
		Interface: model.InterfaceRecord{Name: iface},
		Peers:     map[string]model.PeerRecord{},
	}
	var warnings []ParseWarning

	header := true
	for i, line := range strings.Split(dump, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 1
		fields := strings.Split(line, "\t")

		if header {
			header = false
			warnings = append(warnings, parseHeader(&snap.Interface, fields, lineNo)...)
			continue
		}

		peer, w, ok := parsePeer(fields, lineNo)
		if !ok {
			warnings = append(warnings, w)
			continue
		}
		if _, dup := snap.Peers[peer.PublicKey]; dup {
			warnings = append(warnings, ParseWarning{
				Kind: DuplicatePeer,
				Line: lineNo,
				Text: fmt.Sprintf("public key %s seen before, keeping this line", peer.PublicKey),
			})
		}
		snap.Peers[peer.PublicKey] = peer
	}

	return snap, warnings
}

func parseHeader(rec *model.InterfaceRecord, fields []string, lineNo int) []ParseWarning {
	if len(fields) < headerFields {
		return []ParseWarning{{
			Kind: MalformedLine,
			Line: lineNo,
			Text: fmt.Sprintf("interface header has %d fields, want at least %d", len(fields), headerFields),
		}}
	}
	rec.PublicKey = headerPublicKey(fields[0], fields[1])
	port, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || port < 0 {
		return []ParseWarning{{
			Kind:  MalformedField,
			Line:  lineNo,
			Field: "listening_port",
			Text:  fmt.Sprintf("not a port: %q", fields[2]),
		}}
	}
	rec.ListeningPort = port
	return nil
}

func parsePeer(fields []string, lineNo int) (model.PeerRecord, ParseWarning, bool) {
	if len(fields) < peerFields {
		return model.PeerRecord{}, ParseWarning{
			Kind: MalformedLine,
			Line: lineNo,
			Text: fmt.Sprintf("peer line has %d fields, want %d", len(fields), peerFields),
		}, false
	}
	pubKey := strings.TrimSpace(fields[0])
	if pubKey == "" {
		return model.PeerRecord{}, ParseWarning{Kind: MalformedField, Line: lineNo, Field: "public_key", Text: "empty public key"}, false
	}

	badField := func(name, value string) (model.PeerRecord, ParseWarning, bool) {
		return model.PeerRecord{}, ParseWarning{
			Kind:  MalformedField,
			Line:  lineNo,
			Field: name,
			Text:  fmt.Sprintf("not an integer: %q", value),
		}, false
	}

	handshake, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return badField("latest_handshake", fields[4])
	}
	rx, err := strconv.ParseInt(strings.TrimSpace(fields[5]), 10, 64)
	if err != nil || rx < 0 {
		return badField("transfer_rx", fields[5])
	}
	tx, err := strconv.ParseInt(strings.TrimSpace(fields[6]), 10, 64)
	if err != nil || tx < 0 {
		return badField("transfer_tx", fields[6])
	}
	keepalive, err := parseKeepalive(fields[7])
	if err != nil {
		return badField("persistent_keepalive", fields[7])
	}

	return model.PeerRecord{
		PublicKey:           pubKey,
		PresharedKey:        noneToEmpty(fields[1]),
		Endpoint:            noneToEmpty(fields[2]),
		AllowedIPs:          splitAllowedIPs(fields[3]),
		LatestHandshake:     handshake,
		TransferRx:          rx,
		TransferTx:          tx,
		PersistentKeepalive: keepalive,
	}, ParseWarning{}, true
}

func parseKeepalive(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "off" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid keepalive %q", v)
	}
	return n, nil
}

func splitAllowedIPs(v string) []string {
	v = noneToEmpty(v)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func noneToEmpty(v string) string {
	v = strings.TrimSpace(v)
	if v == "(none)" {
		return ""
	}
	return v
}
