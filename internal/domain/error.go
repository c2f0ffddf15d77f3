package domain

// Envelope é o formato padronizado de todas as respostas da API.
// @Description Envelope padrão: success, data, message e total (listagens).
type Envelope struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty" example:"Equipamento registrado com sucesso."`
	Total   *int        `json:"total,omitempty" example:"3"`
	Detail  string      `json:"detail,omitempty"`
}

// ErrorResponse é a estrutura de erro documentada no Swagger.
// @Description Resposta de erro: success=false e mensagem legível.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Reparo já está em progresso."`
}
