/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// WaitListeningServer waits until the server is ready to accept TCP connections on the address.
func WaitListeningServer(addr string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
			return conn.Close()
		}
		select {
		case <-timer.C:
			return errors.New("waiting listening server timed out")
		default:
			time.Sleep(time.Millisecond * 10)
		}
	}
}

// WaitPortAndListeningServer waits until the port is known (servers listening on ":0")
// and the server is ready to accept TCP connections on it.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	port, err := waitPort(getPort, timeout)
	if err != nil {
		return 0, err
	}
	return port, WaitListeningServer(fmt.Sprintf("%s:%d", host, port), timeout)
}

func waitPort(getPort func() int, timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if port := getPort(); port > 0 {
			return port, nil
		}
		select {
		case <-timer.C:
			return 0, errors.New("waiting for listening port timed out")
		default:
			time.Sleep(time.Millisecond * 10)
		}
	}
}
