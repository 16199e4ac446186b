package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
	Required  bool
}

// CheckFFmpeg checks if ffmpeg is installed and returns its status
func CheckFFmpeg() Status {
	status := check("ffmpeg", "-version")
	status.Required = true
	return status
}

// CheckNotifySend checks for notify-send, used by desktop notifications
func CheckNotifySend() Status {
	return check("notify-send", "--version")
}

// CheckAll returns the status of every external tool signcap shells out to
func CheckAll() []Status {
	return []Status{CheckFFmpeg(), CheckNotifySend()}
}

func check(name string, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Name: name, Installed: false}
	}

	status := Status{
		Name:      name,
		Installed: true,
		Path:      path,
	}

	// first line of the version output
	cmd := exec.Command(path, versionFlag)
	output, err := cmd.Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}
