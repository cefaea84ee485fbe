package docker

var (
	EnvSlice    = envSlice
	WaitForAddr = waitForAddr
)
