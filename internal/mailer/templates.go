package mailer

import (
	"fmt"
	"strings"

	"github.com/charlene/kitchen-api/internal/model"
)

type message struct {
	subject string
	html    string
	text    string
}

var statusLines = map[model.OrderStatus]string{
	model.OrderStatusConfirmed:      "Il tuo ordine è stato confermato!",
	model.OrderStatusPreparing:      "Il nostro chef sta preparando il tuo ordine!",
	model.OrderStatusReady:          "Il tuo ordine è pronto!",
	model.OrderStatusOutForDelivery: "Il tuo ordine è in consegna!",
	model.OrderStatusDelivered:      "Il tuo ordine è stato consegnato!",
}

func welcomeMessage(user *model.User, frontendURL string) message {
	menuURL := frontendURL + "/menu"
	return message{
		subject: "Benvenuto in Charlene's Kitchen!",
		html: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #667eea; padding: 40px 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Benvenuto in Charlene's Kitchen!</h1>
  </div>
  <div style="padding: 40px 20px; background: #f8f9fa;">
    <h2 style="color: #333;">Ciao %s!</h2>
    <p style="color: #666;">Grazie per esserti registrato. Esplora il menu, ordina online per consegna o ritiro e lascia recensioni sui tuoi piatti preferiti.</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background: #667eea; color: white; padding: 15px 30px; text-decoration: none; border-radius: 25px;">Esplora il Menu</a>
    </p>
  </div>
</div>`, user.Name, menuURL),
		text: fmt.Sprintf("Benvenuto in Charlene's Kitchen, %s!\n\nGrazie per esserti registrato.\nVisita il nostro menu: %s\n", user.Name, menuURL),
	}
}

func confirmationMessage(order *model.Order, user *model.User, frontendURL string) message {
	orderURL := fmt.Sprintf("%s/orders/%s", frontendURL, order.ID.Hex())

	var items strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&items, `<div style="border-bottom: 1px solid #eee; padding: 8px 0;"><strong>%s</strong> x%d - €%.2f</div>`,
			it.Name, it.Quantity, it.Subtotal)
	}

	return message{
		subject: fmt.Sprintf("Conferma Ordine %s - Charlene's Kitchen", order.OrderNumber),
		html: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #28a745; padding: 30px 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Ordine Confermato!</h1>
    <p style="color: white; margin: 10px 0 0 0;">Ordine #%s</p>
  </div>
  <div style="padding: 30px 20px; background: #f8f9fa;">
    <h2 style="color: #333;">Ciao %s!</h2>
    <p style="color: #666;">Il tuo ordine è stato ricevuto. Stiamo preparando tutto con cura!</p>
    <div style="background: white; padding: 20px; border-radius: 8px;">
      <p><strong>Numero:</strong> %s</p>
      <p><strong>Totale:</strong> €%.2f</p>
      %s
    </div>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background: #667eea; color: white; padding: 15px 30px; text-decoration: none; border-radius: 25px;">Traccia il tuo Ordine</a>
    </p>
  </div>
</div>`, order.OrderNumber, user.Name, order.OrderNumber, order.TotalAmount, items.String(), orderURL),
		text: fmt.Sprintf("Ordine Confermato - %s\n\nCiao %s!\n\nTotale: €%.2f\nTraccia il tuo ordine: %s\n",
			order.OrderNumber, user.Name, order.TotalAmount, orderURL),
	}
}

func statusMessage(order *model.Order, user *model.User, status model.OrderStatus, frontendURL string) message {
	line, ok := statusLines[status]
	if !ok {
		line = "Aggiornamento ordine"
	}
	orderURL := fmt.Sprintf("%s/orders/%s", frontendURL, order.ID.Hex())

	return message{
		subject: fmt.Sprintf("%s - Ordine %s", line, order.OrderNumber),
		html: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #667eea; padding: 30px 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">%s</h1>
    <p style="color: white; margin: 10px 0 0 0;">Ordine #%s</p>
  </div>
  <div style="padding: 30px 20px; background: #f8f9fa;">
    <h2 style="color: #333;">Ciao %s!</h2>
    <p style="color: #666;">%s</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background: #667eea; color: white; padding: 15px 30px; text-decoration: none; border-radius: 25px;">Visualizza Dettagli</a>
    </p>
  </div>
</div>`, line, order.OrderNumber, user.Name, line, orderURL),
		text: fmt.Sprintf("%s\n\nCiao %s!\n\nIl tuo ordine %s ha cambiato stato: %s\nVisualizza: %s\n",
			line, user.Name, order.OrderNumber, status, orderURL),
	}
}
