package session

// beginRefresh marks a refresh as in progress. Both trigger paths (a
// credential-rejected close code and the error-frame sentinel) share the
// flag, so at most one refresh runs at a time; further triggers are ignored.
func (c *Client) beginRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing {
		return false
	}
	c.refreshing = true
	return true
}

func (c *Client) endRefresh() {
	c.mu.Lock()
	c.refreshing = false
	c.mu.Unlock()
}

// refreshCredentials exchanges the rejected token for a fresh one and updates
// the credential store. On success the run loop opens a replacement
// connection that rejoins the same session code. On failure the credentials
// are unrecoverable: the store is cleared and the session is abandoned.
func (c *Client) refreshCredentials() bool {
	if !c.beginRefresh() {
		return false
	}
	defer c.endRefresh()

	if c.refresher == nil {
		c.failAuth()
		return false
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	fresh, err := c.refresher.Refresh(token)
	if err != nil {
		c.logger.Printf("token refresh failed: %v", err)
		if c.store != nil {
			_ = c.store.Clear()
		}
		c.failAuth()
		return false
	}

	c.mu.Lock()
	c.token = fresh
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveToken(fresh); err != nil {
			c.logger.Printf("persist refreshed token: %v", err)
		}
	}
	c.logger.Printf("access token refreshed, rejoining %s", c.joinCode())
	return true
}

func (c *Client) failAuth() {
	c.mu.Lock()
	c.authExpired = true
	c.state.Status = StatusError
	c.state.LastError = "authorization expired"
	c.mu.Unlock()
}
