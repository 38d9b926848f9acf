// Package telegram liga o coordinator a um bot do Telegram: comandos /start e
// /faucet, e verificação de membro do canal da comunidade.
package telegram
