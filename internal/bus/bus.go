package bus

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "signcap.pid"
const ProtoVer = "0.1"

// Commands understood by the daemon. Each is sent as a single byte
// followed by a newline.
const (
	CmdRecord  byte = 'r'
	CmdStatus  byte = 's'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
)

const dialTimeout = 2 * time.Second

func cacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "signcap"), nil
}

// ~/.cache/signcap/control.sock
func getSockPath() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

// ~/.cache/signcap/signcap.pid
func getPidPath() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

func SockPath() (string, error) {
	return getSockPath()
}

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, dialTimeout)
}

func (s *socketManager) send(cmd byte) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	return resp, err
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails if the PID file points at a live process and removes
// it when it is stale or unreadable.
func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func defaultSocket() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func defaultPid() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func Listen() (net.Listener, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.listen()
}

func Dial() (net.Conn, error) {
	s, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return s.dial()
}

func SendCommand(cmd byte) (string, error) {
	s, err := defaultSocket()
	if err != nil {
		return "", err
	}
	return s.send(cmd)
}

func CheckExistingDaemon() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.checkExisting()
}

func CreatePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.create()
}

func RemovePidFile() error {
	p, err := defaultPid()
	if err != nil {
		return err
	}
	return p.remove()
}

// ParseStatus extracts the state from a "STATUS state=<s>" reply.
func ParseStatus(resp string) (string, error) {
	resp = strings.TrimSpace(resp)
	if rest, ok := strings.CutPrefix(resp, "ERR "); ok {
		return "", fmt.Errorf("daemon error: %s", rest)
	}
	rest, ok := strings.CutPrefix(resp, "STATUS ")
	if !ok {
		return "", fmt.Errorf("unexpected reply %q", resp)
	}
	for _, field := range strings.Fields(rest) {
		if v, ok := strings.CutPrefix(field, "state="); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("reply %q has no state", resp)
}
