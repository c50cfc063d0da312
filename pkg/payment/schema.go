package payment

const SDL = `
type Payment {
  payment_id: ID!
  order_id: Int!
  payment_date: String!
  amount: Float!
  payment_status: String!
  order: Order
}

type Order {
  order_id: ID!
  user_id: Int!
  total_amount: Float!
  status: String!
}

input PaymentInput {
  order_id: Int!
  amount: Float!
}

type Query {
  payments: [Payment!]!
  payment(id: ID!): Payment
  paymentsByOrder(orderId: ID!): [Payment!]!
}

type Mutation {
  createPayment(input: PaymentInput!): Payment!
  updatePaymentStatus(id: ID!, status: String!): Payment!
  processPayment(input: PaymentInput!): Payment!
}
`

const getOrderQuery = `
      query GetOrder($id: ID!) {
        order(id: $id) {
          order_id
          user_id
          total_amount
          status
        }
      }
    `

const sendOrderMutation = `
      mutation SendOrderToShipXpress($orderId: ID!) {
        sendOrderToShipXpress(orderId: $orderId)
      }
    `

const markOrderPaidMutation = `
      mutation MarkOrderPaid($orderId: ID!, $paymentId: ID!) {
        markOrderPaid(orderId: $orderId, paymentId: $paymentId) {
          order_id
          status
        }
      }
    `
