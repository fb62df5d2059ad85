package utils

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestServer_ShutdownRunsHooksInOrder(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), time.Second, time.Second)
	var order []int
	srv.OnShutdown(func(ctx context.Context) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context has no deadline")
		}
		order = append(order, 1)
	})
	srv.OnShutdown(func(context.Context) { order = append(order, 2) })

	srv.shutdownHTTPServer()

	select {
	case <-srv.shutdownChan:
	default:
		t.Fatal("shutdown channel not closed")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("hooks ran as %v", order)
	}
}

func TestServer_ListenerFromAddr(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), DefaultReadTimeout, DefaultWriteTimeout)
	if srv.isGraceful {
		t.Skip("running under a graceful restart")
	}
	ln, err := srv.getNetListener(srv.Addr)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if ln.Addr().String() == "127.0.0.1:0" {
		t.Fatal("expected an assigned port")
	}
}
