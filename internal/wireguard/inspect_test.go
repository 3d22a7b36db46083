package wireguard

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/curve25519"
)

const sampleDump = "" +
	"srvpub=\t(priv)\t51820\toff\n" +
	"puba\t(none)\t39.1.2.3:12345\t10.7.0.2/32\t1700000000\t1000\t2000\toff\n" +
	"pubb\tpsk\t(none)\t(none)\t0\t0\t0\t25\n" +
	"pubc\t(none)\t[2001:db8::1]:51820\t10.7.0.4/32, fd00::4/128\t1700000100\t5\t6\toff\n"

func TestParseDump_Basic(t *testing.T) {
	t.Parallel()

	snap, warnings := ParseDump("wg0", sampleDump)
	if len(warnings) != 0 {
		t.Fatalf("warnings=%v", warnings)
	}
	if snap.Interface.Name != "wg0" || snap.Interface.PublicKey != "srvpub=" || snap.Interface.ListeningPort != 51820 {
		t.Fatalf("interface=%+v", snap.Interface)
	}
	if len(snap.Peers) != 3 {
		t.Fatalf("peers=%d", len(snap.Peers))
	}

	a := snap.Peers["puba"]
	if a.Endpoint != "39.1.2.3:12345" || a.TransferRx != 1000 || a.TransferTx != 2000 || a.LatestHandshake != 1700000000 {
		t.Fatalf("puba=%+v", a)
	}
	if a.PresharedKey != "" || a.PersistentKeepalive != 0 {
		t.Fatalf("puba none/off not normalized: %+v", a)
	}

	b := snap.Peers["pubb"]
	if b.Endpoint != "" || len(b.AllowedIPs) != 0 || b.PersistentKeepalive != 25 || b.PresharedKey != "psk" {
		t.Fatalf("pubb=%+v", b)
	}

	c := snap.Peers["pubc"]
	if len(c.AllowedIPs) != 2 || c.AllowedIPs[1] != "fd00::4/128" {
		t.Fatalf("pubc allowed=%v", c.AllowedIPs)
	}
}

func TestParseDump_NPeersForNLines(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7, 64} {
		var b strings.Builder
		b.WriteString("srv\tpriv\t51820\toff\n")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "peer%d\t(none)\t(none)\t10.0.0.%d/32\t0\t%d\t%d\toff\n", i, i%250, i, i*2)
		}
		snap, warnings := ParseDump("wg0", b.String())
		if len(warnings) != 0 {
			t.Fatalf("n=%d warnings=%v", n, warnings)
		}
		if len(snap.Peers) != n {
			t.Fatalf("n=%d peers=%d", n, len(snap.Peers))
		}
	}
}

func TestParseDump_DuplicateKeyLastWins(t *testing.T) {
	t.Parallel()

	dump := "srv\tpriv\t51820\toff\n" +
		"dup\t(none)\t1.1.1.1:1\t10.0.0.2/32\t0\t10\t10\toff\n" +
		"dup\t(none)\t2.2.2.2:2\t10.0.0.2/32\t0\t20\t30\toff\n"

	snap, warnings := ParseDump("wg0", dump)
	if len(snap.Peers) != 1 {
		t.Fatalf("peers=%d", len(snap.Peers))
	}
	p := snap.Peers["dup"]
	if p.Endpoint != "2.2.2.2:2" || p.TransferRx != 20 || p.TransferTx != 30 {
		t.Fatalf("last line did not win: %+v", p)
	}
	if len(warnings) != 1 || warnings[0].Kind != DuplicatePeer || warnings[0].Line != 3 {
		t.Fatalf("warnings=%v", warnings)
	}
}

func TestParseDump_ShortPeerLineSkipped(t *testing.T) {
	t.Parallel()

	dump := "srv\tpriv\t51820\toff\n" +
		"good1\t(none)\t(none)\t10.0.0.2/32\t0\t1\t2\toff\n" +
		"short\t(none)\t(none)\t10.0.0.3/32\t0\n" +
		"good2\t(none)\t(none)\t10.0.0.4/32\t0\t3\t4\toff\n"

	snap, warnings := ParseDump("wg0", dump)
	if len(snap.Peers) != 2 {
		t.Fatalf("peers=%d", len(snap.Peers))
	}
	if _, ok := snap.Peers["short"]; ok {
		t.Fatalf("short line parsed")
	}
	if len(warnings) != 1 || warnings[0].Kind != MalformedLine || warnings[0].Line != 3 {
		t.Fatalf("warnings=%v", warnings)
	}
}

func TestParseDump_NonNumericFieldDropsLine(t *testing.T) {
	t.Parallel()

	dump := "srv\tpriv\t51820\toff\n" +
		"bad\t(none)\t(none)\t10.0.0.2/32\t0\tlots\t2\toff\n" +
		"ka\t(none)\t(none)\t10.0.0.3/32\t0\t1\t2\tsometimes\n" +
		"ok\t(none)\t(none)\t10.0.0.4/32\t0\t1\t2\toff\n"

	snap, warnings := ParseDump("wg0", dump)
	if len(snap.Peers) != 1 {
		t.Fatalf("peers=%v", snap.Peers)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings=%v", warnings)
	}
	if warnings[0].Kind != MalformedField || warnings[0].Field != "transfer_rx" {
		t.Fatalf("warning[0]=%v", warnings[0])
	}
	if warnings[1].Field != "persistent_keepalive" {
		t.Fatalf("warning[1]=%v", warnings[1])
	}
}

func TestParseDump_MalformedHeader(t *testing.T) {
	t.Parallel()

	dump := "garbage\n" +
		"p1\t(none)\t(none)\t10.0.0.2/32\t0\t1\t2\toff\n"

	snap, warnings := ParseDump("wg0", dump)
	if snap.Interface.Name != "wg0" || snap.Interface.PublicKey != "" {
		t.Fatalf("interface=%+v", snap.Interface)
	}
	if len(snap.Peers) != 1 {
		t.Fatalf("peers=%d", len(snap.Peers))
	}
	if len(warnings) != 1 || warnings[0].Kind != MalformedLine || warnings[0].Line != 1 {
		t.Fatalf("warnings=%v", warnings)
	}
}

func TestParseDump_BadPortKeepsHeader(t *testing.T) {
	t.Parallel()

	snap, warnings := ParseDump("wg0", "srv\tpriv\tnope\toff\n")
	if snap.Interface.PublicKey != "srv" || snap.Interface.ListeningPort != 0 {
		t.Fatalf("interface=%+v", snap.Interface)
	}
	if len(warnings) != 1 || warnings[0].Field != "listening_port" {
		t.Fatalf("warnings=%v", warnings)
	}
}

func TestParseDump_CRLFAndBlankLines(t *testing.T) {
	t.Parallel()

	dump := "\r\nsrv\tpriv\t51820\toff\r\n\r\np1\t(none)\t(none)\t10.0.0.2/32\t0\t1\t2\toff\r\n"
	snap, warnings := ParseDump("wg0", dump)
	if len(warnings) != 0 {
		t.Fatalf("warnings=%v", warnings)
	}
	if snap.Peers["p1"].PersistentKeepalive != 0 || snap.Peers["p1"].TransferTx != 2 {
		t.Fatalf("p1=%+v", snap.Peers["p1"])
	}
}

// testKeyPair returns a base64 private key and the public key derived from it.
func testKeyPair(t *testing.T) (priv, pub string) {
	t.Helper()
	scalar := make([]byte, curve25519.ScalarSize)
	for i := range scalar {
		scalar[i] = byte(i + 1)
	}
	derived, err := curve25519.X25519(scalar, curve25519.Basepoint)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	return base64.StdEncoding.EncodeToString(scalar), base64.StdEncoding.EncodeToString(derived)
}

func TestParseDump_HeaderPrivateKeyFirst(t *testing.T) {
	t.Parallel()

	priv, pub := testKeyPair(t)
	snap, warnings := ParseDump("wg0", priv+"\t"+pub+"\t51820\toff\n")
	if len(warnings) != 0 {
		t.Fatalf("warnings=%v", warnings)
	}
	if snap.Interface.PublicKey != pub || snap.Interface.ListeningPort != 51820 {
		t.Fatalf("interface=%+v", snap.Interface)
	}
	if strings.Contains(fmt.Sprintf("%+v", snap), priv) {
		t.Fatalf("private key kept in snapshot")
	}
}

func TestParseDump_HeaderPublicKeyFirst(t *testing.T) {
	t.Parallel()

	priv, pub := testKeyPair(t)
	snap, _ := ParseDump("wg0", pub+"\t"+priv+"\t51820\toff\n")
	if snap.Interface.PublicKey != pub {
		t.Fatalf("interface=%+v", snap.Interface)
	}
	if strings.Contains(fmt.Sprintf("%+v", snap), priv) {
		t.Fatalf("private key kept in snapshot")
	}
}

func TestHeaderPublicKey_NoKeys(t *testing.T) {
	t.Parallel()

	if got := headerPublicKey("(none)", "(none)"); got != "" {
		t.Fatalf("none=%q", got)
	}
	if got := headerPublicKey("srv", "(priv)"); got != "srv" {
		t.Fatalf("opaque=%q", got)
	}
}
