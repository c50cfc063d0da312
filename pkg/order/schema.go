package order

const SDL = `
type Order {
  order_id: ID!
  user_id: Int!
  order_date: String!
  total_amount: Float!
  status: String!
  shipment_status: String
  shipment_id: String
  user: User
  items: [OrderItem!]!
  transitions: [OrderTransition!]!
}

type OrderItem {
  order_item_id: ID!
  order_id: Int!
  product_id: Int!
  quantity: Int!
  price: Float!
  product: Product
}

type OrderTransition {
  transition_id: ID!
  order_id: Int!
  from_status: String
  to_status: String!
  cause: String!
  created_at: String!
}

type User {
  user_id: ID!
  name: String!
  email: String!
}

type Product {
  product_id: ID!
  name: String!
  price: Float!
}

input OrderItemInput {
  product_id: Int!
  quantity: Int!
  price: Float!
}

input OrderInput {
  user_id: Int!
  items: [OrderItemInput!]!
}

type Query {
  orders: [Order!]!
  order(id: ID!): Order
  ordersByUser(userId: ID!): [Order!]!
  orderTransitions(orderId: ID!): [OrderTransition!]!
}

type Mutation {
  createOrder(input: OrderInput!): Order!
  updateOrderStatus(id: ID!, status: String!): Order!
  updateShipmentStatus(id: ID!, shipmentStatus: String!): Order!
  markOrderPaid(orderId: ID!, paymentId: ID!): Order!
  sendOrderToShipXpress(orderId: ID!): Boolean!
}
`
