package controllers

// SetMail lets external tests swap the controller's mail delivery function.
func (c *AuthController) SetMail(fn func(to, subject, body string) error) {
	c.mail = fn
}
