package engine

// Config controls sandbox engine behavior.
type Config struct {
	// WorkRoot is the host directory under which per-job scratch
	// directories are created.
	WorkRoot string `yaml:"workRoot"`
	// CgroupRoot is the cgroup v2 directory owning per-job subgroups.
	CgroupRoot string `yaml:"cgroupRoot"`
	// HelperPath locates the sandbox-init binary.
	HelperPath string `yaml:"helperPath"`
	// RootFS, when set, is chrooted into inside the mount namespace and
	// bind-mounted read-only. The scratch directory is the only writable
	// location either way.
	RootFS string `yaml:"rootFS"`
	// SeccompProfile is the path of the syscall filter profile.
	SeccompProfile string `yaml:"seccompProfile"`
	// ScratchLimitBytes caps file sizes inside the scratch directory via
	// RLIMIT_FSIZE in the helper.
	ScratchLimitBytes int64 `yaml:"scratchDiskLimitBytes"`

	EnableCgroup     bool `yaml:"enableCgroup"`
	EnableNamespaces bool `yaml:"enableNamespaces"`
	EnableSeccomp    bool `yaml:"enableSeccomp"`
}

const (
	defaultHelperPath        = "sandbox-init"
	defaultScratchLimitBytes = 10 * 1024 * 1024
)

func (c Config) withDefaults() Config {
	if c.HelperPath == "" {
		c.HelperPath = defaultHelperPath
	}
	if c.ScratchLimitBytes <= 0 {
		c.ScratchLimitBytes = defaultScratchLimitBytes
	}
	return c
}
