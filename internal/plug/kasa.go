package plug

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	// DefaultPort is the Kasa LAN protocol port.
	DefaultPort = 9999

	// Probe makes this many connection attempts before reporting the
	// plug unreachable.
	probeAttempts = 3
	probeTimeout  = 600 * time.Millisecond

	// ioTimeout bounds a full command round trip.
	ioTimeout = 5 * time.Second

	// maxReplySize rejects nonsense length prefixes; real replies are
	// around a kilobyte.
	maxReplySize = 1 << 20
)

// Kasa drives a TP-Link Kasa plug over its local TCP protocol: each
// message is a 4-byte big-endian length prefix followed by an
// autokey-XOR-obscured JSON payload.
type Kasa struct {
	addr string
}

// NewKasa creates a driver for the plug at addr. A bare IP or hostname
// gets the default port appended.
func NewKasa(addr string) *Kasa {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	return &Kasa{addr: addr}
}

// Addr returns the plug's network address.
func (k *Kasa) Addr() string {
	return k.addr
}

// Probe dials the plug with a short timeout per attempt. Returns
// ErrUnreachable once all attempts fail.
func (k *Kasa) Probe() error {
	for i := 0; i < probeAttempts; i++ {
		conn, err := net.DialTimeout("tcp", k.addr, probeTimeout)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("%w: no answer from %s", ErrUnreachable, k.addr)
}

// TurnOn energizes the relay. The plug is probed first to fail fast
// when it is unreachable.
func (k *Kasa) TurnOn() error {
	if err := k.Probe(); err != nil {
		return err
	}
	return k.setRelay(1)
}

// TurnOff de-energizes the relay, probing first like TurnOn.
func (k *Kasa) TurnOff() error {
	if err := k.Probe(); err != nil {
		return err
	}
	return k.setRelay(0)
}

func (k *Kasa) setRelay(relay int) error {
	reply, err := k.roundTrip(fmt.Sprintf(`{"system":{"set_relay_state":{"state":%d}}}`, relay))
	if err != nil {
		return err
	}

	var resp struct {
		System struct {
			SetRelayState struct {
				ErrCode int `json:"err_code"`
			} `json:"set_relay_state"`
		} `json:"system"`
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		return fmt.Errorf("parse relay reply: %w", err)
	}
	if code := resp.System.SetRelayState.ErrCode; code != 0 {
		return fmt.Errorf("plug refused relay command: err_code %d", code)
	}
	return nil
}

// IsOn queries the live relay state. Callers that want fail-fast
// behavior probe first; scan does.
func (k *Kasa) IsOn() (bool, error) {
	reply, err := k.roundTrip(`{"system":{"get_sysinfo":{}}}`)
	if err != nil {
		return false, err
	}

	var resp struct {
		System struct {
			GetSysinfo struct {
				ErrCode    int `json:"err_code"`
				RelayState int `json:"relay_state"`
			} `json:"get_sysinfo"`
		} `json:"system"`
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		return false, fmt.Errorf("parse sysinfo reply: %w", err)
	}
	if code := resp.System.GetSysinfo.ErrCode; code != 0 {
		return false, fmt.Errorf("plug refused sysinfo query: err_code %d", code)
	}
	return resp.System.GetSysinfo.RelayState == 1, nil
}

// roundTrip sends one command and reads one reply over a fresh
// connection. The plug drops connections quickly, so nothing is pooled.
func (k *Kasa) roundTrip(command string) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", k.addr, probeTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, k.addr)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	payload := encrypt([]byte(command))
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := conn.Write(frame); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, fmt.Errorf("read reply header: %w", err)
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxReplySize {
		return nil, fmt.Errorf("reply length %d exceeds maximum %d", size, maxReplySize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return decrypt(body), nil
}

// The LAN protocol obscures payloads with an autokey XOR stream seeded
// at 171: each plaintext byte is XORed with the previous ciphertext
// byte.
const cipherSeed = 171

func encrypt(plain []byte) []byte {
	out := make([]byte, len(plain))
	key := byte(cipherSeed)
	for i, b := range plain {
		key ^= b
		out[i] = key
	}
	return out
}

func decrypt(cipher []byte) []byte {
	out := make([]byte, len(cipher))
	key := byte(cipherSeed)
	for i, c := range cipher {
		out[i] = key ^ c
		key = c
	}
	return out
}
