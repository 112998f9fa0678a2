//go:build !darwin

package msp

func portName(port string) string {
	return port
}

func filterPorts(ports []string) []string {
	return ports
}
