// Package domain define contratos e tipos de domínio do faucet: registro de
// concessões (ledger), veredito de elegibilidade, gate de exclusão mútua e os
// colaboradores externos (validação de endereço, membership, disburser).
//
// Este pacote não depende de net/http, de drivers de banco nem de clientes de
// blockchain. A intenção é permitir testes de unidade puros e desacoplar as
// regras anti-abuso dos detalhes de infraestrutura.
package domain
