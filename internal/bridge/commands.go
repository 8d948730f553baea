// SPDX-License-Identifier: GPL-3.0-or-later

package bridge

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bassosimone/hotspot"
	"github.com/gin-gonic/gin"
)

// postCommand delivers a command to the registered handler and answers with
// its response.
func (b *Bridge) postCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	ctype, err := hotspot.ParseCommandType(req.Type)
	if err != nil || ctype == hotspot.CommandNone {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid command type: " + req.Type})
		return
	}

	handler, queue := b.registration()
	if handler == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "no hotspot helper registered"})
		return
	}

	cmd, responses, err := b.newCommand(ctype, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := queue.Submit(func() { handler(cmd) }); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	var expired <-chan time.Time
	if !cmd.Deadline.IsZero() {
		timer := time.NewTimer(cmd.Deadline.Sub(b.cfg.TimeNow()))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case resp := <-responses:
		c.JSON(http.StatusOK, encodeResponse(resp))

	case <-expired:
		b.logger.Warn(
			"bridgeCommandExpired",
			slog.String("commandType", ctype.String()),
			slog.String("spanID", cmd.ID),
			slog.Time("t", b.cfg.TimeNow()),
		)
		c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "command deadline exceeded"})

	case <-c.Request.Context().Done():
		// The OS went away; the late response is dropped
	}
}

// newCommand builds the command described by req. The returned channel
// receives its response.
func (b *Bridge) newCommand(ctype hotspot.CommandType, req *commandRequest) (*hotspot.Command, <-chan *hotspot.Response, error) {
	network, err := decodeNetwork(req.Network)
	if err != nil {
		return nil, nil, err
	}
	list, err := decodeNetworkList(req.NetworkList)
	if err != nil {
		return nil, nil, err
	}

	responses := make(chan *hotspot.Response, 1)
	cmd := hotspot.NewCommand(ctype, func(resp *hotspot.Response) {
		responses <- resp
	})
	cmd.Network = network
	cmd.NetworkList = list
	if req.Interface != "" {
		cmd.Dialer = b.cfg.DialerFactory(req.Interface)
	}
	if ctype != hotspot.CommandPresentUI && b.cfg.CommandTimeout > 0 {
		cmd.Deadline = b.cfg.TimeNow().Add(b.cfg.CommandTimeout)
	}
	return cmd, responses, nil
}

func (b *Bridge) getInterfaces(c *gin.Context) {
	c.JSON(http.StatusOK, encodeNetworkList(b.SupportedNetworkInterfaces()))
}

// putInterfaces replaces the managed interfaces. A JSON null clears them.
func (b *Bridge) putInterfaces(c *gin.Context) {
	var values []networkJSON
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	list, err := decodeNetworkList(values)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	b.mu.Lock()
	b.interfaces = list
	b.mu.Unlock()
	c.JSON(http.StatusOK, encodeNetworkList(list))
}

func (b *Bridge) postLogoff(c *gin.Context) {
	if b.PerformLogoff == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "logoff not available"})
		return
	}
	c.JSON(http.StatusOK, logoffResponse{Started: b.PerformLogoff()})
}
